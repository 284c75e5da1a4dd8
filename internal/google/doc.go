// Package google loads OAuth credentials for Google APIs and builds
// authenticated HTTP clients from them.
//
// Credentials are stored one file per account under the user cache
// directory (inboxpilot/<account>.token). The files are written by an
// external OAuth flow; this package only reads them. A file may hold either
// an "authorized_user" credentials document, which lets tokens be refreshed,
// or a bare OAuth2 token.
package google
