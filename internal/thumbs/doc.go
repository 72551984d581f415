// Package thumbs implements the thumbnail cache and generation pipeline.
//
// A thumbnail is identified by a ContentKey: the md5 of the source file's
// bytes plus the requested output shape. Cache entries are plain files named
// from the key, written atomically. A filesystem lock per content hash keeps
// concurrent requests for the same source from decoding it more than once.
package thumbs
