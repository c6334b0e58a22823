// Package box implements a document source for Box.
//
// Box files and folders are addressed by a JSON encoded (id, type) pair,
// e.g. {"id":"12345","type":"folder"}. The account root folder has id "0"
// and is never reported as a parent.
package box
