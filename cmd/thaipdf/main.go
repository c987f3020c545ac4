package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wudi/thaipdf/document"
	"github.com/wudi/thaipdf/images"
	"github.com/wudi/thaipdf/observability"
	"github.com/wudi/thaipdf/recovery"
	"github.com/wudi/thaipdf/thai"
)

const usage = `Usage: thaipdf <command> [flags]

Commands:
  stamp   draw text or an image onto a page and write a new PDF
  wrap    segment and wrap Thai text
  info    print page count and page sizes
  format  spell numbers, baht amounts and Buddhist-era dates
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "stamp":
		err = runStamp(os.Args[2:])
	case "wrap":
		err = runWrap(os.Args[2:], os.Stdin, os.Stdout)
	case "info":
		err = runInfo(os.Args[2:], os.Stdout)
	case "format":
		err = runFormat(os.Args[2:], os.Stdout)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "thaipdf: unknown command %q\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "thaipdf %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

type stampOptions struct {
	in, out    string
	page       int
	x, y       float64
	text       string
	font       string
	boldFont   string
	bold       bool
	size       float64
	align      string
	color      string
	wrap       int
	lineHeight float64
	image      string
	width      float64
	height     float64
	scale      string
	strict     bool
	noSubset   bool
	notdef     bool
	verbose    bool
}

func runStamp(args []string) error {
	var o stampOptions
	fs := flag.NewFlagSet("stamp", flag.ContinueOnError)
	fs.StringVar(&o.in, "in", "", "Input PDF")
	fs.StringVar(&o.out, "out", "", "Output PDF")
	fs.IntVar(&o.page, "page", 1, "Page number (1-based)")
	fs.Float64Var(&o.x, "x", 0, "X from the left edge, in points")
	fs.Float64Var(&o.y, "y", 0, "Y from the top edge, in points")
	fs.StringVar(&o.text, "text", "", "Text to draw")
	fs.StringVar(&o.font, "font", "", "TrueType font for the text")
	fs.StringVar(&o.boldFont, "bold-font", "", "TrueType bold variant")
	fs.BoolVar(&o.bold, "bold", false, "Draw with the bold variant")
	fs.Float64Var(&o.size, "size", 12, "Font size in points")
	fs.StringVar(&o.align, "align", "left", "left, center or right")
	fs.StringVar(&o.color, "color", "000000", "Text colour as RRGGBB")
	fs.IntVar(&o.wrap, "wrap", 0, "Wrap text at this many characters")
	fs.Float64Var(&o.lineHeight, "line-height", 0, "Distance between wrapped lines (default 1.2 x size)")
	fs.StringVar(&o.image, "image", "", "JPEG or PNG to draw")
	fs.Float64Var(&o.width, "w", 100, "Image box width")
	fs.Float64Var(&o.height, "h", 100, "Image box height")
	fs.StringVar(&o.scale, "scale", "stretch", "stretch, fit-width, fit-height or fit-box")
	fs.BoolVar(&o.strict, "strict", false, "Fail on any structural damage in the input")
	fs.BoolVar(&o.noSubset, "no-subset", false, "Embed whole font programs")
	fs.BoolVar(&o.notdef, "notdef", false, "Draw characters missing from every font as .notdef")
	fs.BoolVar(&o.verbose, "v", false, "Log progress to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if o.in == "" || o.out == "" {
		return fmt.Errorf("-in and -out are required")
	}
	if o.text == "" && o.image == "" {
		return fmt.Errorf("nothing to draw: pass -text or -image")
	}

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	opts := []document.Option{
		document.WithLogger(observability.NewWriterLogger(os.Stderr, level)),
		document.WithSubsetting(!o.noSubset),
	}
	if o.strict {
		opts = append(opts, document.WithRecovery(recovery.NewStrictStrategy()))
	}
	if o.notdef {
		opts = append(opts, document.WithMissingGlyphs(document.Notdef))
	}

	data, err := os.ReadFile(o.in)
	if err != nil {
		return err
	}
	doc, err := document.Open(data, opts...)
	if err != nil {
		return err
	}

	if o.text != "" {
		if err := stampText(doc, o); err != nil {
			return err
		}
	}
	if o.image != "" {
		mode, ok := images.ParseScaleMode(o.scale)
		if !ok {
			return fmt.Errorf("unknown scale mode %q", o.scale)
		}
		img, err := os.ReadFile(o.image)
		if err != nil {
			return err
		}
		if err := doc.Insert(o.page, document.ImageContent(img, o.x, o.y, o.width, o.height, mode)); err != nil {
			return err
		}
	}

	f, err := os.Create(o.out)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if _, err := doc.WriteTo(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func stampText(doc *document.Document, o stampOptions) error {
	if o.font == "" {
		return fmt.Errorf("-text needs -font")
	}
	fam := document.FontFamilyData{}
	var err error
	if fam.Regular, err = os.ReadFile(o.font); err != nil {
		return err
	}
	if o.boldFont != "" {
		if fam.Bold, err = os.ReadFile(o.boldFont); err != nil {
			return err
		}
	}
	if err := doc.RegisterFontFamily("main", fam); err != nil {
		return err
	}
	if err := doc.SetFont("main", o.size); err != nil {
		return err
	}
	if o.bold {
		if err := doc.SetFontWeight(document.WeightBold); err != nil {
			return err
		}
	}
	c, err := parseColor(o.color)
	if err != nil {
		return err
	}
	doc.SetTextColor(c)
	align, err := document.ParseAlign(o.align)
	if err != nil {
		return err
	}
	content := document.TextContent(o.text, o.x, o.y, align)
	content.MaxChars = o.wrap
	content.LineHeight = o.lineHeight
	return doc.Insert(o.page, content)
}

// parseColor reads RRGGBB with an optional leading '#'.
func parseColor(s string) (document.Color, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "#"))
	if err != nil || len(b) != 3 {
		return document.Color{}, fmt.Errorf("invalid colour %q, want RRGGBB", s)
	}
	return document.RGB(b[0], b[1], b[2]), nil
}

func runWrap(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("wrap", flag.ContinueOnError)
	maxChars := fs.Int("max", 40, "Maximum characters per line (0 disables wrapping)")
	dictPath := fs.String("dict", "", "Word list, one word per line (default: built in)")
	segments := fs.Bool("segments", false, "Print word segments instead of lines")
	if err := fs.Parse(args); err != nil {
		return err
	}

	seg, err := thai.DefaultSegmenter()
	if *dictPath != "" {
		var f *os.File
		if f, err = os.Open(*dictPath); err != nil {
			return err
		}
		var dict *thai.Dictionary
		dict, err = thai.LoadDictionary(f)
		f.Close()
		if err == nil {
			seg = thai.NewSegmenter(dict)
		}
	}
	if err != nil {
		return err
	}

	text := strings.Join(fs.Args(), " ")
	if text == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return err
		}
		text = strings.TrimRight(string(data), "\r\n")
	}
	var out []string
	if *segments {
		out = seg.Segment(text)
	} else {
		out = seg.WordWrap(text, *maxChars)
	}
	for _, line := range out {
		if *segments {
			fmt.Fprintf(stdout, "%q\n", line)
		} else {
			fmt.Fprintln(stdout, line)
		}
	}
	return nil
}

type pageInfo struct {
	Page   int     `json:"page"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Error  string  `json:"error,omitempty"`
}

type docInfo struct {
	Version string     `json:"version"`
	Pages   int        `json:"pages"`
	Sizes   []pageInfo `json:"sizes"`
}

func runInfo(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: thaipdf info <pdf>")
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	doc, err := document.Open(data)
	if err != nil {
		return err
	}
	info := docInfo{Version: doc.Version(), Pages: doc.PageCount()}
	for p := 1; p <= doc.PageCount(); p++ {
		pi := pageInfo{Page: p}
		if pi.Width, pi.Height, err = doc.PageSize(p); err != nil {
			pi.Error = err.Error()
		}
		info.Sizes = append(info.Sizes, pi)
	}
	out, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal info: %w", err)
	}
	fmt.Fprintf(stdout, "%s\n", out)
	return nil
}

func runFormat(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("format", flag.ContinueOnError)
	number := fs.String("number", "", "Integer to spell in Thai")
	baht := fs.String("baht", "", "Amount to spell as baht and satang")
	date := fs.String("date", "", "Date (YYYY-MM-DD) in the Buddhist era")
	style := fs.String("style", "long", "Date style: short, long or year")
	pattern := fs.String("pattern", "", "Render -baht with a #,###.## pattern instead of words")
	if err := fs.Parse(args); err != nil {
		return err
	}
	switch {
	case *number != "":
		n, err := strconv.ParseInt(*number, 10, 64)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, thai.NumberWords(n))
	case *baht != "":
		v, err := strconv.ParseFloat(*baht, 64)
		if err != nil {
			return err
		}
		if *pattern != "" {
			fmt.Fprintln(stdout, thai.FormatFloat(v, *pattern))
			return nil
		}
		fmt.Fprintln(stdout, thai.BahtWords(v))
	case *date != "":
		t, err := time.Parse("2006-01-02", *date)
		if err != nil {
			return err
		}
		f := thai.DateLong
		switch *style {
		case "short":
			f = thai.DateShort
		case "year":
			f = thai.DateYear
		case "long":
		default:
			return fmt.Errorf("unknown date style %q", *style)
		}
		fmt.Fprintln(stdout, thai.FormatDate(t, f))
	default:
		return fmt.Errorf("pass -number, -baht or -date")
	}
	return nil
}
