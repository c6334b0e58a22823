// Package file persists sercha-sync settings as a TOML file.
//
// The file keeps its table layout: setting "sync.max_documents" writes
// max_documents under [sync]. Writes go to a temporary file that is renamed
// over the original, with owner-only permissions because the file may hold
// the API signing secret.
package file
