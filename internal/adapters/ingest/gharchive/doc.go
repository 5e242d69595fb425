// Package gharchive reads GH Archive hourly gzip files line by line
//
// Design choices:
//   - The compressed file is mapped read-only and fed to the codec without a copy.
//   - Decompression runs on its own goroutine and hands fixed-size segments to the
//     parser through a bounded free list, so a slow parser stalls the decompressor
//     instead of growing memory.
//   - Lines are yielded as slices into a reused buffer; callers copy what they keep.
//   - No JSON is parsed here. Classification and decoding belong to core.
package gharchive
