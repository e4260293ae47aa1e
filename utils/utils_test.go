package utils

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUtils_ShouldBeValidUrl(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsValidUrl("https://github.com/esimov/stamp/"))
	assert.False(IsValidUrl("testdata/sample.png"))
	assert.False(IsValidUrl("-"))
}

func TestUtils_ShouldDetectValidFileType(t *testing.T) {
	assert := assert.New(t)

	ctype, err := DetectContentType(bytes.NewReader(samplePNG(t)))
	assert.NoError(err)
	assert.Equal("image/png", ctype)

	ctype, err = DetectContentType(strings.NewReader("plain text"))
	assert.NoError(err)
	assert.False(strings.Contains(ctype, "image"))
}

func TestUtils_ShouldDownloadImage(t *testing.T) {
	assert := assert.New(t)
	data := samplePNG(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sample.png":
			w.Write(data)
		case "/text":
			w.Write([]byte("this is not an image"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f, err := DownloadImage(srv.URL+"/sample.png", 1<<20)
	if !assert.NoError(err) {
		return
	}
	defer os.Remove(f.Name())
	defer f.Close()

	_, _, err = image.Decode(f)
	assert.NoError(err)

	_, err = DownloadImage(srv.URL+"/text", 1<<20)
	assert.Error(err)

	_, err = DownloadImage(srv.URL+"/missing.png", 1<<20)
	assert.Error(err)

	_, err = DownloadImage(srv.URL+"/sample.png", 8)
	assert.Error(err)
}

func TestUtils_HexToRGBA(t *testing.T) {
	assert := assert.New(t)

	c, err := HexToRGBA("#ff0000")
	assert.NoError(err)
	assert.Equal(color.NRGBA{R: 0xff, A: 0xff}, c)

	c, err = HexToRGBA("0f0")
	assert.NoError(err)
	assert.Equal(color.NRGBA{G: 0xff, A: 0xff}, c)

	c, err = HexToRGBA("#11223380")
	assert.NoError(err)
	assert.Equal(color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0x80}, c)

	_, err = HexToRGBA("#12")
	assert.Error(err)
	_, err = HexToRGBA("#zzzzzz")
	assert.Error(err)
}

func TestUtils_Math(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(2, Min(2, 5))
	assert.Equal(2, Min(5, 2))
	assert.Equal(5, Max(2, 5))
	assert.Equal(3.5, Abs(-3.5))
	assert.Equal(0, Clamp(-4, 0, 10))
	assert.Equal(10, Clamp(14, 0, 10))
	assert.Equal(0.5, Clamp(0.5, 0.0, 1.0))
	assert.True(Contains([]string{"gif", "png"}, "png"))
	assert.False(Contains([]string{"gif", "png"}, "bmp"))
}

func TestUtils_Format(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("1.50s", FormatTime(1500*time.Millisecond))
	assert.Equal("2m 5.00s", FormatTime(2*time.Minute+5*time.Second))
	assert.Equal("1h 1m 1.00s", FormatTime(time.Hour+time.Minute+time.Second))

	ts := time.Unix(1700000000, 123*int64(time.Millisecond))
	assert.Equal("stamp-1700000000123.gif", StampFilename(".gif", ts))
	assert.Equal("stamp-1700000000123.png", StampFilename("png", ts))

	assert.Equal(StatusColor+"stamp"+DefaultColor, DecorateText("stamp", StatusMessage))
}

func TestUtils_Spinner(t *testing.T) {
	var buf bytes.Buffer

	s := NewSpinner("working", time.Millisecond, false)
	s.SetWriter(&buf)
	s.Start()
	time.Sleep(5 * time.Millisecond)
	s.Stop("done")

	assert.True(t, strings.HasSuffix(buf.String(), "done"))

	// stopping twice prints the message only once
	s.Stop("again")
	assert.False(t, strings.Contains(buf.String(), "again"))
}

func TestUtils_SpinnerConcurrentUse(t *testing.T) {
	s := NewSpinner("working", time.Millisecond, false)
	s.SetWriter(io.Discard)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Start()
			time.Sleep(time.Millisecond)
			s.Stop(fmt.Sprintf("worker %d", i))
		}(i)
	}
	wg.Wait()
	s.Stop("")
}

func samplePNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("could not encode the sample image: %v", err)
	}
	return buf.Bytes()
}
