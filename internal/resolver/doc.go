// Package resolver turns a user-supplied path into an animation Source.
//
// A path may name a file or a directory:
//
//   - *.qianim files are read far enough to sniff JSON vs XML
//   - *.xar files are behavior graphs
//   - *.pml files are package descriptors pointing at a behavior graph
//   - a directory prefers its first *.qianim, then its first *.pml, then
//     its first *.xar (each in sorted order)
//   - a path with no known extension tries path.qianim, then path.xar
//
// Audio is optional. An explicit override wins when it exists (a file, or a
// directory holding a file with the animation's base name). Otherwise a
// descriptor's declared audio resource is used, then a same-named audio file
// (.wav, .mp3, .ogg, any case) next to the animation or in its audio/ or
// sounds/ subdirectory, then the only audio file in those places. Two or more
// unrelated audio files mean no audio.
package resolver
