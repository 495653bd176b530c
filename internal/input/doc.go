/*
Package input turns touch gestures and soft controls into the desktop
keyboard, mouse and joystick events the hosted game polls for.

# Flow

	touch ─► Translator ─► regions (buttons, dpads, sticks) ─┐
	            │                                             ├─► Queue ─► Poll
	            └─► mouse-look / cursor ──────────────────────┘

A pointer belongs to the first region it lands on at pointer-down and keeps
that region until it lifts, so two thumbs on two controls never interfere.
Pointers outside every region drive the mouse.

Every key, button or direction pressed by a region is released when its
pointer lifts or the gesture is cancelled.

# Queue

The queue is a single-producer single-consumer ring of 256 slots. Producers
are serialized by the Translator; the render thread is the only consumer.
When full, new events are dropped and counted.
*/
package input
