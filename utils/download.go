package utils

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// DownloadImage downloads the image from the internet and saves it into a temporary file.
// Responses larger than maxBytes are rejected. The caller should remove the file once done.
func DownloadImage(url string, maxBytes int64) (*os.File, error) {
	res, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("unable to download image file from URI: %s: %w", url, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unable to download image file from URI: %s, status %v", url, res.Status)
	}

	tmpfile, err := os.CreateTemp("", "stamp-src-*")
	if err != nil {
		return nil, fmt.Errorf("unable to create temporary file: %w", err)
	}

	// Copy the image binary data into the temporary file, reading one byte more than allowed
	// to find out whether the limit has been exceeded.
	n, err := io.Copy(tmpfile, io.LimitReader(res.Body, maxBytes+1))
	if err != nil {
		cleanup(tmpfile)
		return nil, fmt.Errorf("unable to copy the source URI into the destination file: %w", err)
	}
	if n > maxBytes {
		cleanup(tmpfile)
		return nil, fmt.Errorf("the downloaded file exceeds the %d bytes limit", maxBytes)
	}

	if _, err := tmpfile.Seek(0, io.SeekStart); err != nil {
		cleanup(tmpfile)
		return nil, err
	}

	ctype, err := DetectContentType(tmpfile)
	if err != nil {
		cleanup(tmpfile)
		return nil, err
	}

	if !strings.Contains(ctype, "image") {
		cleanup(tmpfile)
		return nil, fmt.Errorf("the downloaded file is not a valid image type")
	}

	return tmpfile, nil
}

func cleanup(f *os.File) {
	f.Close()
	os.Remove(f.Name())
}
