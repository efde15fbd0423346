// Package chunker splits a source audio or video file into fixed-length
// speech-NNN.wav chunks with ffmpeg's segment muxer.
//
// Chunk paths double as resume identifiers, so a chunk directory is derived
// per source and chunk length (ChunkDir) and a complete existing set is reused
// instead of regenerated.
package chunker
