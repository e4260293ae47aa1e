package main

import (
	"fmt"
	"image"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/esimov/stamp"
	"github.com/esimov/stamp/render"
	"github.com/esimov/stamp/utils"
	"gopkg.in/yaml.v2"
)

// Config is the stamp description read from a YAML file. Command line flags
// take precedence over the values defined here.
type Config struct {
	Text struct {
		Content    string  `yaml:"content"`
		Font       string  `yaml:"font"`
		Size       float64 `yaml:"size"`
		Color      string  `yaml:"color"`
		Background string  `yaml:"background"`
		Rotation   float64 `yaml:"rotation"`
		Gradient   struct {
			Enabled   bool   `yaml:"enabled"`
			Start     string `yaml:"start"`
			End       string `yaml:"end"`
			Direction string `yaml:"direction"`
		} `yaml:"gradient"`
		Shadow struct {
			Enabled bool    `yaml:"enabled"`
			Color   string  `yaml:"color"`
			Blur    float64 `yaml:"blur"`
			OffsetX int     `yaml:"offsetX"`
			OffsetY int     `yaml:"offsetY"`
		} `yaml:"shadow"`
		Stroke struct {
			Enabled bool   `yaml:"enabled"`
			Color   string `yaml:"color"`
			Width   int    `yaml:"width"`
		} `yaml:"stroke"`
	} `yaml:"text"`
	Photo struct {
		Crop string `yaml:"crop"`
		Face bool   `yaml:"face"`
	} `yaml:"photo"`
	Animation struct {
		Types      []string `yaml:"types"`
		Speed      int      `yaml:"speed"`
		Frames     int      `yaml:"frames"`
		Palette    string   `yaml:"palette"`
		Background string   `yaml:"background"`
	} `yaml:"animation"`
}

// defaultConfig returns the configuration used when no file is given.
func defaultConfig() *Config {
	c := &Config{}
	c.Text.Size = render.DefaultFontSize
	c.Text.Color = "#000000"
	c.Text.Background = "transparent"
	c.Text.Gradient.Start = "#ff0000"
	c.Text.Gradient.End = "#0000ff"
	c.Text.Gradient.Direction = string(render.Horizontal)
	c.Text.Shadow.Color = "#000000"
	c.Text.Shadow.Blur = 4
	c.Text.Shadow.OffsetX = 2
	c.Text.Shadow.OffsetY = 2
	c.Text.Stroke.Color = "#ffffff"
	c.Text.Stroke.Width = 2
	c.Animation.Speed = stamp.DefaultSpeed
	c.Animation.Frames = stamp.DefaultFrameCount
	c.Animation.Palette = stamp.PaletteGlobal.String()
	c.Animation.Background = "#ffffff"

	return c
}

// readConfig decodes the YAML file found at path on top of the default configuration.
func readConfig(path string) (*Config, error) {
	c := defaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open the config file: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("unable to decode the config file: %w", err)
	}
	return c, nil
}

// textStamp builds the text renderer described by the configuration.
func (c *Config) textStamp() (*render.Text, error) {
	t := render.NewText(c.Text.Content)
	t.FontPath = c.Text.Font
	t.FontSize = c.Text.Size
	t.Rotation = c.Text.Rotation

	var err error
	if t.Color, err = utils.HexToRGBA(c.Text.Color); err != nil {
		return nil, err
	}
	if isTransparent(c.Text.Background) {
		t.BackgroundTransparent = true
	} else {
		t.BackgroundTransparent = false
		if t.BackgroundColor, err = utils.HexToRGBA(c.Text.Background); err != nil {
			return nil, err
		}
	}

	g := c.Text.Gradient
	t.Gradient.Enabled = g.Enabled
	if t.Gradient.Start, err = utils.HexToRGBA(g.Start); err != nil {
		return nil, err
	}
	if t.Gradient.End, err = utils.HexToRGBA(g.End); err != nil {
		return nil, err
	}
	if t.Gradient.Direction, err = render.ParseDirection(g.Direction); err != nil {
		return nil, err
	}

	s := c.Text.Shadow
	t.Shadow.Enabled = s.Enabled
	t.Shadow.Blur = s.Blur
	t.Shadow.OffsetX = s.OffsetX
	t.Shadow.OffsetY = s.OffsetY
	if t.Shadow.Color, err = utils.HexToRGBA(s.Color); err != nil {
		return nil, err
	}

	t.Stroke.Enabled = c.Text.Stroke.Enabled
	t.Stroke.Width = c.Text.Stroke.Width
	if t.Stroke.Color, err = utils.HexToRGBA(c.Text.Stroke.Color); err != nil {
		return nil, err
	}
	return t, nil
}

// processor builds the animation processor described by the configuration.
func (c *Config) processor(format stamp.Format) (*stamp.Processor, error) {
	var styles []stamp.AnimationStyle
	for _, name := range c.Animation.Types {
		s, err := stamp.ParseStyle(name)
		if err != nil {
			return nil, err
		}
		styles = append(styles, s)
	}

	speed := c.Animation.Speed
	if speed < stamp.MinSpeed || speed > stamp.MaxSpeed {
		return nil, fmt.Errorf("the animation speed should be between %d and %d, got %d",
			stamp.MinSpeed, stamp.MaxSpeed, speed)
	}
	if c.Animation.Frames < 1 {
		return nil, fmt.Errorf("the frame count should be positive, got %d", c.Animation.Frames)
	}

	policy, err := stamp.ParsePalettePolicy(c.Animation.Palette)
	if err != nil {
		return nil, err
	}
	backing, err := parseBacking(c.Animation.Background)
	if err != nil {
		return nil, err
	}

	return &stamp.Processor{
		Styles:     styles,
		Speed:      speed,
		FrameCount: c.Animation.Frames,
		Background: backing,
		Palette:    policy,
		Format:     format,
	}, nil
}

func isTransparent(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "transparent", "none":
		return true
	}
	return false
}

// parseBacking converts a color name into the animation backing.
func parseBacking(s string) (stamp.Backing, error) {
	if isTransparent(s) {
		return stamp.Transparent(), nil
	}
	c, err := utils.HexToRGBA(s)
	if err != nil {
		return stamp.Backing{}, err
	}
	return stamp.Solid(c), nil
}

// parseCrop parses an "x,y,width,height" crop area. An empty string means no crop.
func parseCrop(s string) (*image.Rectangle, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid crop area %q, expected x,y,width,height", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid crop area %q: %w", s, err)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return nil, fmt.Errorf("invalid crop area %q: the size should be positive", s)
	}
	r := image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3])
	return &r, nil
}

