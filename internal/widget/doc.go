// Package widget models the control elements of a device page.
//
// A page descriptor lists widgets in display order. Every widget except a
// label has an element id and a slice in the binary value blob the device
// sends after a VAL record. Widgets decode their slice from the front of the
// blob with Consume and hand the rest to the next widget.
//
// Blob layout per kind (integers little-endian):
//
//	button  u32 pressed, u8 enabled                    5 bytes
//	switch  u32 selected index, u8 enabled             5 bytes
//	entry   text, NUL, u8 enabled, u8 padding          len(text)+3 bytes
//	value   int32:  i32, u8 padding                    5 bytes
//	        float:  f32, u8 padding                    5 bytes
//	        string: text, NUL, 2 bytes padding         len(text)+3 bytes
//	label   nothing
//
// Interactive widgets push Events onto a shared queue: buttons report 1 on
// press and 0 on release, switches report the selected index, entries report
// their text when they lose focus.
package widget
