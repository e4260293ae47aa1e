package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/esimov/stamp"
	"github.com/esimov/stamp/render"
	"github.com/esimov/stamp/utils"
	"golang.org/x/term"
)

const HelpBanner = `
┌─┐┌┬┐┌─┐┌┬┐┌─┐
└─┐ │ ├─┤│││├─┘
└─┘ ┴ ┴ ┴┴ ┴┴

Animated stamp and GIF generator.
    Version: %s

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// maxWorkers sets the maximum number of concurrently running workers.
const maxWorkers = 20

// result holds the relevant information about the stamp generation and the created file.
type result struct {
	path string
	err  error
}

// photoOptions holds the photo related settings shared by every processed file.
type photoOptions struct {
	crop    *image.Rectangle
	face    bool
	cascade []byte
}

var (
	// imgurl holds the downloaded source file in case the source is an URL.
	imgurl *os.File
	// spinner used to instantiate and call the progress indicator.
	spinner *utils.Spinner
)

// Version indicates the current build version.
var Version string

var (
	// Flags
	source      = flag.String("in", "", "Source photo, directory or URL (use - for stdin)")
	destination = flag.String("out", "", "Destination file or directory (use - for stdout)")
	configFile  = flag.String("config", "", "YAML file describing the stamp")
	text        = flag.String("text", "", "Stamp text (use \\n for line breaks)")
	fontFile    = flag.String("font", "", "TrueType or OpenType font file")
	fontSize    = flag.Float64("size", render.DefaultFontSize, "Font size")
	textColor   = flag.String("color", "#000000", "Text color")
	textBg      = flag.String("textbg", "transparent", "Text background color")
	rotation    = flag.Float64("rotate", 0, "Text rotation in degrees")
	gradient    = flag.String("gradient", "", "Gradient direction (horizontal, vertical, diagonal)")
	shadow      = flag.Bool("shadow", false, "Draw a drop shadow behind the text")
	stroke      = flag.Bool("stroke", false, "Draw an outline around the text")
	cropArea    = flag.String("crop", "", "Photo crop area as x,y,width,height")
	faceDetect  = flag.Bool("face", false, "Center the photo crop on the detected face")
	cascade     = flag.String("cc", "", "Cascade classifier used by the face detector")
	animTypes   = flag.String("anim", "", "Comma separated animation types")
	speed       = flag.Int("speed", stamp.DefaultSpeed, "Animation speed (1-10)")
	frames      = flag.Int("frames", stamp.DefaultFrameCount, "Number of animation frames")
	palette     = flag.String("palette", stamp.PaletteGlobal.String(), "Palette policy (global, frame)")
	background  = flag.String("bg", "#ffffff", "Animation background color or transparent")
	workers     = flag.Int("conc", runtime.NumCPU(), "Number of files to process concurrently")
)

func main() {
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, HelpBanner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := defaultConfig()
	if *configFile != "" {
		c, err := readConfig(*configFile)
		if err != nil {
			log.Fatalf(utils.DecorateText("%v", utils.ErrorMessage), err)
		}
		cfg = c
	}
	// Flags set explicitly on the command line override the config file.
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	cfg.override(set)

	if *source == "" && cfg.Text.Content == "" {
		flag.Usage()
		log.Fatal(fmt.Sprintf("%s%s",
			utils.DecorateText("\nPlease provide a text or a source photo!", utils.ErrorMessage),
			utils.DefaultColor,
		))
	}

	spinnerText := fmt.Sprintf("%s %s",
		utils.DecorateText("⚡ STAMP", utils.StatusMessage),
		utils.DecorateText("is creating the stamp...", utils.DefaultMessage))
	spinner = utils.NewSpinner(spinnerText, time.Millisecond*200, true)

	// Capture CTRL-C signal and restore the cursor visibility back.
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalChan
		spinner.RestoreCursor()
		os.Exit(1)
	}()

	now := time.Now()
	if *source == "" {
		textMode(cfg)
	} else {
		photoMode(cfg)
	}
	fmt.Fprintf(os.Stderr, "\nExecution time: %s\n", utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage))
}

// override replaces the configuration values of the flags found in set
// with the values given on the command line.
func (c *Config) override(set map[string]bool) {
	if set["text"] {
		c.Text.Content = strings.ReplaceAll(*text, `\n`, "\n")
	}
	if set["font"] {
		c.Text.Font = *fontFile
	}
	if set["size"] {
		c.Text.Size = *fontSize
	}
	if set["color"] {
		c.Text.Color = *textColor
	}
	if set["textbg"] {
		c.Text.Background = *textBg
	}
	if set["rotate"] {
		c.Text.Rotation = *rotation
	}
	if set["gradient"] {
		c.Text.Gradient.Enabled = true
		c.Text.Gradient.Direction = *gradient
	}
	if set["shadow"] {
		c.Text.Shadow.Enabled = *shadow
	}
	if set["stroke"] {
		c.Text.Stroke.Enabled = *stroke
	}
	if set["crop"] {
		c.Photo.Crop = *cropArea
	}
	if set["face"] {
		c.Photo.Face = *faceDetect
	}
	if set["anim"] {
		c.Animation.Types = nil
		for _, s := range strings.Split(*animTypes, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.Animation.Types = append(c.Animation.Types, s)
			}
		}
	}
	if set["speed"] {
		c.Animation.Speed = *speed
	}
	if set["frames"] {
		c.Animation.Frames = *frames
	}
	if set["palette"] {
		c.Animation.Palette = *palette
	}
	if set["bg"] {
		c.Animation.Background = *background
	}
}

// outputFormat returns the format matching the destination file name.
// Without a usable extension the stamp is saved as GIF when animated and PNG otherwise.
func outputFormat(dest string, styles []string) (stamp.Format, error) {
	if dest != "" && dest != pipeName && filepath.Ext(dest) != "" {
		return stamp.FormatFromPath(dest)
	}
	parsed, err := stamp.ParseStyles(strings.Join(styles, ","))
	if err != nil {
		return stamp.FormatPNG, err
	}
	if stamp.IsAnimated(parsed) {
		return stamp.FormatGIF, nil
	}
	return stamp.FormatPNG, nil
}

// textMode renders the configured text into a single stamp file.
func textMode(cfg *Config) {
	format, err := outputFormat(*destination, cfg.Animation.Types)
	if err != nil {
		log.Fatalf(utils.DecorateText("%v", utils.ErrorMessage), err)
	}
	proc, err := cfg.processor(format)
	if err != nil {
		log.Fatalf(utils.DecorateText("%v", utils.ErrorMessage), err)
	}
	txt, err := cfg.textStamp()
	if err != nil {
		log.Fatalf(utils.DecorateText("%v", utils.ErrorMessage), err)
	}

	dest := *destination
	if dest == "" {
		dest = utils.StampFilename(format.Ext(), time.Now())
	}

	// Start the progress indicator.
	spinner.Start()
	err = export(txt, dest, proc)
	spinner.Stop(stopMsg(err))

	printStatus(dest, err)
}

// photoMode turns the source photo, or every photo of the source directory, into a stamp.
func photoMode(cfg *Config) {
	var (
		fs  os.FileInfo
		err error
	)

	crop, err := parseCrop(cfg.Photo.Crop)
	if err != nil {
		log.Fatalf(utils.DecorateText("%v", utils.ErrorMessage), err)
	}
	opts := photoOptions{crop: crop, face: cfg.Photo.Face}
	if opts.face {
		if len(*cascade) == 0 {
			log.Fatalf(utils.DecorateText("Please specify a face classifier in case you are using the -face flag!\n", utils.ErrorMessage))
		}
		opts.cascade, err = os.ReadFile(*cascade)
		if err != nil {
			log.Fatalf(
				utils.DecorateText("Unable to read the cascade file: %v", utils.ErrorMessage),
				utils.DecorateText(err.Error(), utils.DefaultMessage),
			)
		}
	}

	// Supported files
	validExtensions := []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp"}

	// Check if source path is a local image or URL.
	if utils.IsValidUrl(*source) {
		src, err := utils.DownloadImage(*source, render.MaxSourceBytes)
		if err != nil {
			log.Fatalf(
				utils.DecorateText("Failed to load the source image: %v", utils.ErrorMessage),
				utils.DecorateText(err.Error(), utils.DefaultMessage),
			)
		}
		defer os.Remove(src.Name())
		defer src.Close()

		fs, err = src.Stat()
		if err != nil {
			log.Fatalf(
				utils.DecorateText("Failed to load the source image: %v", utils.ErrorMessage),
				utils.DecorateText(err.Error(), utils.DefaultMessage),
			)
		}
		imgurl = src
	} else {
		// Check if the source is a pipe name or a regular file.
		if *source == pipeName {
			fs, err = os.Stdin.Stat()
		} else {
			fs, err = os.Stat(*source)
		}
		if err != nil {
			log.Fatalf(
				utils.DecorateText("Failed to load the source image: %v", utils.ErrorMessage),
				utils.DecorateText(err.Error(), utils.DefaultMessage),
			)
		}
	}

	switch mode := fs.Mode(); {
	case mode.IsDir():
		var wg sync.WaitGroup

		dest := *destination
		if dest == "" {
			dest = "stamps"
		}
		// Read destination file or directory.
		if _, err := os.Stat(dest); err != nil {
			if err = os.Mkdir(dest, 0755); err != nil {
				log.Fatalf(
					utils.DecorateText("Unable to get dir stats: %v\n", utils.ErrorMessage),
					utils.DecorateText(err.Error(), utils.DefaultMessage),
				)
			}
		}

		format, err := outputFormat("", cfg.Animation.Types)
		if err != nil {
			log.Fatalf(utils.DecorateText("%v", utils.ErrorMessage), err)
		}
		proc, err := cfg.processor(format)
		if err != nil {
			log.Fatalf(utils.DecorateText("%v", utils.ErrorMessage), err)
		}

		// Limit the concurrently running workers to maxWorkers.
		if *workers <= 0 || *workers > maxWorkers {
			*workers = runtime.NumCPU()
		}

		// Process recursively the image files from the specified directory concurrently.
		ch := make(chan result)
		done := make(chan interface{})
		defer close(done)

		paths, errc := walkDir(done, *source, validExtensions)

		// The progress indicator runs once for the whole batch.
		spinner.Start()

		wg.Add(*workers)
		for i := 0; i < *workers; i++ {
			go func() {
				defer wg.Done()
				consumer(done, paths, dest, proc, opts, ch)
			}()
		}

		// Close the channel after the values are consumed.
		go func() {
			defer close(ch)
			wg.Wait()
		}()

		// Consume the channel values.
		var batchErr error
		for res := range ch {
			if res.err != nil {
				batchErr = res.err
			}
			printStatus(res.path, res.err)
		}
		spinner.Stop(stopMsg(batchErr))

		if err := <-errc; err != nil {
			fmt.Fprint(os.Stderr, utils.DecorateText(err.Error(), utils.ErrorMessage))
		}

	case mode.IsRegular() || mode&os.ModeNamedPipe != 0: // check for regular files or pipe names
		format, err := outputFormat(*destination, cfg.Animation.Types)
		if err != nil {
			log.Fatalf(utils.DecorateText("%v", utils.ErrorMessage), err)
		}
		proc, err := cfg.processor(format)
		if err != nil {
			log.Fatalf(utils.DecorateText("%v", utils.ErrorMessage), err)
		}

		dest := *destination
		if dest == "" {
			dest = utils.StampFilename(format.Ext(), time.Now())
		}
		spinner.Start()
		err = processor(*source, dest, proc, opts)
		spinner.Stop(stopMsg(err))

		printStatus(dest, err)
	}
}

// walkDir starts a goroutine to walk the specified directory tree in recursive manner
// and send the path of each regular file on the string channel.
// It sends the result of the walk on the error channel.
// It terminates in case done channel is closed.
func walkDir(
	done <-chan interface{},
	src string,
	srcExts []string,
) (<-chan string, <-chan error) {
	pathChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		// Close the paths channel after Walk returns.
		defer close(pathChan)

		errChan <- filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.Mode().IsRegular() {
				return nil
			}

			ext := strings.ToLower(filepath.Ext(info.Name()))
			if utils.Contains(srcExts, ext) {
				select {
				case <-done:
					return errors.New("directory walk cancelled")
				case pathChan <- path:
				}
			}
			return nil
		})
	}()
	return pathChan, errChan
}

// consumer reads the path names from the paths channel, turns every photo
// into a stamp, then sends the results on a new channel.
func consumer(
	done <-chan interface{},
	paths <-chan string,
	dest string,
	proc *stamp.Processor,
	opts photoOptions,
	res chan<- result,
) {
	for src := range paths {
		dst := filepath.Join(dest, destName(src, proc.Format))
		err := processor(src, dst, proc, opts)

		select {
		case <-done:
			return
		case res <- result{
			path: dst,
			err:  err,
		}:
		}
	}
}

// destName replaces the extension of the source file name with the output format extension.
func destName(src string, format stamp.Format) string {
	base := filepath.Base(src)
	return strings.TrimSuffix(base, filepath.Ext(base)) + format.Ext()
}

// processor creates the stamp of the photo found at the in path.
func processor(in, out string, proc *stamp.Processor, opts photoOptions) error {
	src, err := openSource(in)
	if err != nil {
		return err
	}
	if f, ok := src.(*os.File); ok && f != imgurl && f != os.Stdin {
		defer f.Close()
	}

	photo := &render.Photo{
		Reader:     src,
		Crop:       opts.crop,
		FaceDetect: opts.face,
		Cascade:    opts.cascade,
	}
	return export(photo, out, proc)
}

// export renders the source and writes the stamp into the out path.
// The destination file is removed if the stamp could not be created.
func export(src stamp.Source, out string, proc *stamp.Processor) error {
	dst, err := openDestination(out)
	if err != nil {
		return err
	}

	err = proc.Process(src, dst)

	if f, ok := dst.(*os.File); ok && f != os.Stdout {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(out)
		}
	}
	return err
}

// stopMsg returns the message printed when the progress indicator stops.
func stopMsg(err error) string {
	status := utils.DecorateText("✔", utils.SuccessMessage)
	if err != nil {
		status = utils.DecorateText("✘", utils.ErrorMessage)
	}
	return fmt.Sprintf("%s %s %s",
		utils.DecorateText("⚡ STAMP", utils.StatusMessage),
		utils.DecorateText("is creating the stamp...", utils.DefaultMessage),
		status,
	)
}

// openSource converts the source path to a readable file.
func openSource(in string) (io.Reader, error) {
	// Check if the source path is a local image or URL.
	if utils.IsValidUrl(in) {
		if _, err := imgurl.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return imgurl, nil
	}
	// Check if the source is a pipe name or a regular file.
	if in == pipeName {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, errors.New("`-` should be used with a pipe for stdin")
		}
		return os.Stdin, nil
	}
	src, err := os.Open(in)
	if err != nil {
		return nil, &stamp.SourceError{Op: "open", Err: err}
	}
	return src, nil
}

// openDestination converts the destination path to a writable file.
func openDestination(out string) (io.Writer, error) {
	// Check if the destination is a pipe name or a regular file.
	if out == pipeName {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, errors.New("`-` should be used with a pipe for stdout")
		}
		return os.Stdout, nil
	}
	dst, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("unable to create the destination file: %v", err)
	}
	return dst, nil
}

// printStatus displays the relevant information about the stamp generation.
func printStatus(fname string, err error) {
	switch {
	case errors.Is(err, stamp.ErrSourceUnavailable):
		fmt.Fprintf(os.Stderr,
			utils.DecorateText("\nThe source could not be loaded: %s", utils.ErrorMessage),
			utils.DecorateText(fmt.Sprintf("\n\tReason: %v\n\tUse a PNG, JPEG, GIF, WEBP or BMP photo smaller than %dMB.\n",
				err, render.MaxSourceBytes>>20), utils.DefaultMessage),
		)
	case err != nil:
		fmt.Fprintf(os.Stderr,
			utils.DecorateText("\nError creating the stamp: %s", utils.ErrorMessage),
			utils.DecorateText(fmt.Sprintf("\n\tReason: %v\n", err), utils.DefaultMessage),
		)
	case fname != pipeName:
		fmt.Fprintf(os.Stderr, "\nThe stamp has been saved as: %s %s\n",
			utils.DecorateText(filepath.Base(fname), utils.SuccessMessage),
			utils.DefaultColor,
		)
	}
}
