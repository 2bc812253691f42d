// Package engine provides the simulation core for Treasure Quest.
//
// The engine package implements:
//   - The grid model: plains, mountains and treasure cells with occupancy
//   - The adventurer registry, ordered by turn
//   - Movement resolution (rotations, advances, collisions, treasure pickup)
//   - The turn scheduler that interleaves adventurers one action at a time
//   - The line-oriented text format used to load and save a map
//
// Core Types:
//
// Engine owns a Grid and a Registry for the lifetime of one simulation and
// exposes Step for single-step use and RunToCompletion for batch use. Each step
// returns an Outcome describing what happened to one adventurer.
//
// Usage:
//
//	eng, err := engine.Load("C - 3 - 3\nA - Bob - 0 - 0 - E - AA\n")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for !eng.IsEnded() {
//		outcome, _ := eng.Step()
//		fmt.Println(outcome)
//	}
//
//	fmt.Print(eng.Output())
//
// Text Format:
//
// Records are separated by " - ". "C" sets the map size, "M" places a
// mountain, "T" places treasures, and "A" declares an adventurer with its
// starting column, row, orientation and movement script (G = turn left,
// D = turn right, A = advance). Coordinates are always column then row.
//
// Turn Order:
//
// Adventurers act strictly one after the other in declaration order. A game
// turn is complete once every adventurer has attempted the action at the
// current script index; the simulation ends after the longest script.
package engine
