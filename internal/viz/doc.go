// Package viz renders solutions in the terminal and runs the live relaxation
// view.
//
// The package is built on Bubble Tea:
//
//   - [Canvas]: braille sub-pixel canvas
//   - [Camera]: orbiting perspective projection of solution coordinates
//   - [Model]: live view that relaxes a solution while it is edited
//   - [Picker]: preset menu that opens a [Model]
//
// # Key Bindings
//
//	Space     - Pause/Resume relaxation
//	S         - Single step while paused
//	Tab       - Select next atom (Shift+Tab previous)
//	B         - Select next bond of the selected atom
//	A         - Toggle anchor on the selected atom
//	C         - Cycle the selected bond's order
//	D         - Delete the selected atom (Shift+D the selected bond)
//	P / Up/Dn - Pick and tune a force field parameter
//	R         - Toggle auto-rotation
//	X/Y/Z     - Rotate the camera
//	+/-       - Zoom
//	T         - Cycle themes
//	?         - Show help overlay
package viz
