// Package sharepoint implements a document source for SharePoint sites
// through Microsoft Graph.
//
// Documents are sites, drives (document libraries) and drive items.
// Their ids are JSON objects naming the Graph coordinates:
//
//	site   {"siteId":"..."}
//	drive  {"id":"root","siteId":"...","driveId":"..."}
//	item   {"fileId":"...","siteId":"...","driveId":"..."}
package sharepoint
