// Package receipt implements persistence for the installation Receipt.
//
// The FileRepository stores and loads the receipt as JSON inside the
// download directory. The receipt records what the last successful download
// installed; the downloader never reads it to short-circuit a fetch.
package receipt
