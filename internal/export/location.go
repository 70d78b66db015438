// Package export writes result tables to local files and object storage.
package export

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Schemes understood by Parse.
const (
	SchemeFile  = "file"
	SchemeGCS   = "gs"
	SchemeS3    = "s3"
	SchemeAzure = "az"
)

// Location is a parsed export destination. Bucket is the container for
// Azure and empty for local files, where Key is the file path.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

func (l Location) String() string {
	if l.Scheme == SchemeFile {
		return l.Key
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// Parse reads a destination URI. Plain paths and file:// URIs are local;
// gs://, s3:// and az:// name a bucket (or container) and an object key.
// Azure abfss:// and https blob URLs are accepted too.
func Parse(uri string) (Location, error) {
	if uri == "" {
		return Location{}, fmt.Errorf("empty export destination")
	}
	if !strings.Contains(uri, "://") {
		return Location{Scheme: SchemeFile, Key: filepath.Clean(uri)}, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, fmt.Errorf("parse export destination %q: %w", uri, err)
	}

	loc := Location{Key: strings.TrimPrefix(u.Path, "/")}
	switch u.Scheme {
	case SchemeFile:
		loc.Scheme = SchemeFile
		loc.Key = filepath.Clean(u.Path)
		return loc, nil
	case SchemeGCS, SchemeS3, SchemeAzure:
		loc.Scheme = u.Scheme
		loc.Bucket = u.Host
	case "abfss":
		// abfss://container@account.dfs.core.windows.net/path
		if u.User == nil {
			return Location{}, fmt.Errorf("abfss destination %q missing container@account", uri)
		}
		loc.Scheme = SchemeAzure
		loc.Bucket = u.User.Username()
	case "https":
		if !strings.HasSuffix(u.Host, ".blob.core.windows.net") {
			return Location{}, fmt.Errorf("unrecognized https destination host %q", u.Host)
		}
		container, key, _ := strings.Cut(loc.Key, "/")
		loc.Scheme = SchemeAzure
		loc.Bucket, loc.Key = container, key
	default:
		return Location{}, fmt.Errorf("unsupported export scheme %q in %q", u.Scheme, uri)
	}
	if loc.Bucket == "" {
		return Location{}, fmt.Errorf("empty bucket in export destination %q", uri)
	}
	if loc.Key == "" {
		return Location{}, fmt.Errorf("empty key in export destination %q", uri)
	}
	return loc, nil
}
