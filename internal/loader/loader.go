// Package loader reads the raw trip-record files and the weather CSV through a storage connection.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/tigerroll/taxiweather/pkg/batch/adapter/storage"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

const moduleName = "loader"

// DefaultGlob selects the trip-record files when no glob is configured.
const DefaultGlob = "*.parquet"

// Loader reads input objects from the storage connection named by storageRef.
type Loader struct {
	resolver   storage.StorageConnectionResolver
	storageRef string
	glob       string
}

// NewLoader creates a Loader. An empty glob falls back to DefaultGlob.
func NewLoader(resolver storage.StorageConnectionResolver, storageRef string, glob string) *Loader {
	if glob == "" {
		glob = DefaultGlob
	}
	return &Loader{resolver: resolver, storageRef: storageRef, glob: glob}
}

func (l *Loader) connection(ctx context.Context) (storage.StorageConnection, error) {
	conn, err := l.resolver.ResolveStorageConnection(ctx, l.storageRef)
	if err != nil {
		return nil, exception.NewIOError(moduleName, fmt.Sprintf("failed to resolve storage connection '%s'", l.storageRef), err)
	}
	return conn, nil
}

// listMatching returns the objects directly inside dir whose base name matches the glob, in name order.
func (l *Loader) listMatching(ctx context.Context, conn storage.StorageConnection, dir string) ([]string, error) {
	dir = strings.Trim(path.Clean("/"+dir), "/")
	prefix := ""
	want := "."
	if dir != "" {
		prefix = dir + "/"
		want = dir
	}

	var names []string
	err := conn.ListObjects(ctx, "", prefix, func(objectName string) error {
		if path.Dir(objectName) != want {
			return nil
		}
		ok, err := path.Match(l.glob, path.Base(objectName))
		if err != nil {
			return err
		}
		if ok {
			names = append(names, objectName)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, path.ErrBadPattern) {
			return nil, exception.NewConfigError(moduleName, fmt.Sprintf("invalid glob '%s'", l.glob), err)
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, exception.NewIOError(moduleName, fmt.Sprintf("input directory '%s' does not exist", displayDir(dir)), err)
		}
		return nil, exception.NewIOError(moduleName, fmt.Sprintf("failed to list input directory '%s'", displayDir(dir)), err)
	}
	if len(names) == 0 {
		return nil, exception.NewIOError(moduleName, fmt.Sprintf("no files matching '%s' in '%s'", l.glob, displayDir(dir)), nil)
	}
	return names, nil
}

// readObject downloads the whole object into memory.
func readObject(ctx context.Context, conn storage.StorageConnection, objectName string) ([]byte, error) {
	rc, err := conn.Download(ctx, "", objectName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, exception.NewIOError(moduleName, fmt.Sprintf("'%s' does not exist", objectName), err)
		}
		return nil, exception.NewIOError(moduleName, fmt.Sprintf("failed to open '%s'", objectName), err)
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			logger.Warnf("Failed to close '%s': %v", objectName, cerr)
		}
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, exception.NewIOError(moduleName, fmt.Sprintf("failed to read '%s'", objectName), err)
	}
	return data, nil
}

func displayDir(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
