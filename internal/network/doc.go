// Package network defines the entity model the control engine evaluates
// against: nodes (junctions, reservoirs, tanks) and links (pipes, pumps,
// valves) held by a Model together with the simulation time cursors.
//
// Elements are mutable attribute bags. The control layer reads live values
// and writes new ones exclusively through the Element interface, so it never
// depends on concrete types except where the physics requires it (tank
// geometry, pump head curves, valve settings).
//
// Attribute reads are three-valued:
//   - (value, true, nil): the attribute is known and currently set
//   - (0, false, nil): the attribute exists but has no value yet
//     (e.g. flow before the first solve)
//   - (0, false, error): the element does not expose the attribute
//
// An unknown attribute is a programming error on the caller's side and is
// always reported, never swallowed.
package network
