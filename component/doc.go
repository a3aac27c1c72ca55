// Package component defines the lifecycle contract shared by every bootstrap
// step and the ordered registry that drives them.
//
// # Interfaces
//
//   - Component: Start/Stop/Health for one startup step
//   - Optional: steps whose start failure is logged instead of aborting
//   - Runner: long-running loops started once every step has succeeded
//   - Describable: startup summary descriptions
package component
