/*
Copyright © 2024 the BinMap authors.
This file is part of BinMap.

BinMap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

BinMap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with BinMap.  If not, see <http://www.gnu.org/licenses/>.
*/

package cloud

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gocloud.dev/blob"
)

type blobReader struct {
	*blob.Reader
	bucket *blob.Bucket
}

func (r blobReader) Close() error {
	err := r.Reader.Close()
	if err2 := r.bucket.Close(); err == nil {
		err = err2
	}
	return err
}

// OpenInput opens loc for reading, where loc is either a local file
// path or a blob URL accepted by ParseLocation.
func OpenInput(ctx context.Context, loc string) (io.ReadCloser, error) {
	if !IsBlob(loc) {
		f, err := os.Open(loc)
		if err != nil {
			return nil, fmt.Errorf("cloud: opening input: %w", err)
		}
		return f, nil
	}
	l, err := ParseLocation(loc)
	if err != nil {
		return nil, err
	}
	bucket, err := OpenBucket(ctx, l.Bucket)
	if err != nil {
		return nil, err
	}
	r, err := ReadBlob(ctx, bucket, l.Key)
	if err != nil {
		bucket.Close()
		return nil, err
	}
	return blobReader{Reader: r, bucket: bucket}, nil
}

// ReadBlob opens the given blob from the given bucket for reading.
func ReadBlob(ctx context.Context, bucket *blob.Bucket, key string) (*blob.Reader, error) {
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("cloud: reading blob %s: %w", key, err)
	}
	return r, nil
}

// WriteBlob copies r to the given key of the given bucket.
func WriteBlob(ctx context.Context, bucket *blob.Bucket, key string, r io.Reader) error {
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("cloud: creating writer for blob %s: %v", key, err)
	}
	if _, err = io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("cloud: copying blob %s: %v", key, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("cloud: writing blob %s: %v", key, err)
	}
	return nil
}

// UploadShapefile copies the shapefile at the local path shp, along with
// its associated files, to bucket. key is the key of the .shp blob; the
// keys of the associated files share its stem. It returns the keys of
// the uploaded blobs.
func UploadShapefile(ctx context.Context, bucket *blob.Bucket, shp, key string) ([]string, error) {
	var keys []string
	dst := expandShp(key)
	for i, fname := range expandShp(shp) {
		f, err := os.Open(fname)
		if os.IsNotExist(err) && i > 0 {
			// Not all of the associated files are always written.
			continue
		} else if err != nil {
			return keys, fmt.Errorf("cloud: uploading shapefile: %w", err)
		}
		err = WriteBlob(ctx, bucket, dst[i], f)
		f.Close()
		if err != nil {
			return keys, err
		}
		keys = append(keys, dst[i])
	}
	return keys, nil
}

// Export copies the shapefile at the local path shp to loc, the blob URL
// of a .shp file.
func Export(ctx context.Context, shp, loc string) ([]string, error) {
	l, err := ParseLocation(loc)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(l.Key) != ".shp" {
		return nil, fmt.Errorf("cloud: export location %q must end in .shp", loc)
	}
	bucket, err := OpenBucket(ctx, l.Bucket)
	if err != nil {
		return nil, err
	}
	defer bucket.Close()
	return UploadShapefile(ctx, bucket, shp, l.Key)
}

// expandShp returns the given file + associated [.dbf, .shx, .prj]
// files if the given file has the .shp extension, and returns the given
// file otherwise
func expandShp(filename string) []string {
	o := []string{filename}
	ext := filepath.Ext(filename)
	if ext != ".shp" {
		return o
	}
	for _, newExt := range []string{".dbf", ".shx", ".prj"} {
		o = append(o, filename[0:len(filename)-4]+newExt)
	}
	return o
}

// ModTime returns the time that loc, a local file path or blob URL,
// was last modified.
func ModTime(ctx context.Context, loc string) (time.Time, error) {
	if !IsBlob(loc) {
		fi, err := os.Stat(loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("cloud: %w", err)
		}
		return fi.ModTime(), nil
	}
	l, err := ParseLocation(loc)
	if err != nil {
		return time.Time{}, err
	}
	bucket, err := OpenBucket(ctx, l.Bucket)
	if err != nil {
		return time.Time{}, err
	}
	defer bucket.Close()
	a, err := bucket.Attributes(ctx, l.Key)
	if err != nil {
		return time.Time{}, fmt.Errorf("cloud: reading attributes of blob %s: %w", l.Key, err)
	}
	return a.ModTime, nil
}
