// Package export renders static snapshots of a layout pass to SVG or PNG.
// Snapshots are a debugging and sharing tool beside the interactive path:
// they draw the complete laid-out forest at T0 detail regardless of camera
// or tier state.
package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/kinview/pkg/layout"
	"github.com/vanderheijden86/kinview/pkg/metrics"
	"github.com/vanderheijden86/kinview/pkg/model"
)

// SnapshotOptions controls snapshot export behaviour.
type SnapshotOptions struct {
	Path   string // Output path; format inferred from extension when Format empty
	Format string // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title  string // Optional title rendered in the summary block

	People        map[model.PersonID]model.Person
	Layout        *layout.Result
	LayoutVersion uint64
}

// SaveSnapshot renders a static snapshot (SVG or PNG) with a summary block.
func SaveSnapshot(opts SnapshotOptions) error {
	defer metrics.Timer(metrics.SnapshotSave)()

	if opts.Layout == nil || len(opts.Layout.Nodes) == 0 {
		return fmt.Errorf("no layout to export")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg" // safe default
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path = opts.Path + ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	scene := buildScene(opts)

	switch format {
	case "svg":
		file, err := os.Create(opts.Path)
		if err != nil {
			return err
		}
		defer file.Close()
		return renderSVG(file, scene)
	default:
		return renderPNG(opts.Path, scene)
	}
}

// --- scene computation -----------------------------------------------------

const (
	scenePadding = 36.0
	headerHeight = 96.0
)

type sceneNode struct {
	ID       string
	Name     string
	Gender   model.Gender
	Deceased bool
	X, Y     float64
	W, H     float64
}

type sceneEdge struct {
	Spouse bool
	X1, Y1 float64
	X2, Y2 float64
}

type scene struct {
	Nodes   []sceneNode
	Edges   []sceneEdge
	Width   int
	Height  int
	Summary summaryInfo
}

type summaryInfo struct {
	Title     string
	Version   uint64
	NodeCount int
	EdgeCount int
	Excluded  int
}

func buildScene(opts SnapshotOptions) scene {
	res := opts.Layout
	bounds := res.Bounds

	// Shift world coordinates into the image with padding below the header.
	offX := scenePadding - bounds.MinX
	offY := scenePadding + headerHeight - bounds.MinY

	var nodes []sceneNode
	for _, id := range res.Order {
		n := res.Nodes[id]
		p := opts.People[id]
		name := p.Name
		if name == "" {
			name = string(id)
		}
		nodes = append(nodes, sceneNode{
			ID:       string(id),
			Name:     truncate(name, 24),
			Gender:   p.Gender,
			Deceased: p.Deceased,
			X:        n.Bounds.MinX + offX,
			Y:        n.Bounds.MinY + offY,
			W:        n.Bounds.Width(),
			H:        n.Bounds.Height(),
		})
	}

	var edges []sceneEdge
	for _, c := range res.Connections {
		edges = append(edges, sceneEdge{
			Spouse: c.Kind == layout.ConnSpouse,
			X1:     c.X1 + offX,
			Y1:     c.Y1 + offY,
			X2:     c.X2 + offX,
			Y2:     c.Y2 + offY,
		})
	}

	width := int(bounds.Width() + scenePadding*2)
	if width < 640 {
		width = 640
	}
	height := int(bounds.Height() + scenePadding*2 + headerHeight)
	if height < 480 {
		height = 480
	}

	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = "Tree Snapshot"
	}

	return scene{
		Nodes:  nodes,
		Edges:  edges,
		Width:  width,
		Height: height,
		Summary: summaryInfo{
			Title:     title,
			Version:   opts.LayoutVersion,
			NodeCount: len(nodes),
			EdgeCount: len(edges),
			Excluded:  len(res.Diagnostics),
		},
	}
}

// --- rendering -------------------------------------------------------------

var (
	colorFemale   = color.RGBA{0xf8, 0xd7, 0xe8, 0xff}
	colorMale     = color.RGBA{0xd7, 0xe3, 0xf8, 0xff}
	colorNeutral  = color.RGBA{0xe8, 0xe8, 0xe8, 0xff}
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorEdge     = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorSpouse   = color.RGBA{0xbf, 0x6b, 0x8e, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
)

func genderColor(g model.Gender) color.RGBA {
	switch g {
	case model.GenderFemale:
		return colorFemale
	case model.GenderMale:
		return colorMale
	default:
		return colorNeutral
	}
}

func renderPNG(path string, sc scene) error {
	dc := gg.NewContext(sc.Width, sc.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(sc.Width)-32, headerHeight-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	drawSummary(dc, sc)

	for _, e := range sc.Edges {
		if e.Spouse {
			dc.SetColor(colorSpouse)
		} else {
			dc.SetColor(colorEdge)
		}
		dc.SetLineWidth(2)
		dc.DrawLine(e.X1, e.Y1, e.X2, e.Y2)
		dc.Stroke()
	}

	for _, n := range sc.Nodes {
		dc.SetColor(genderColor(n.Gender))
		dc.DrawRoundedRectangle(n.X, n.Y, n.W, n.H, 8)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.SetLineWidth(1.2)
		dc.DrawRoundedRectangle(n.X, n.Y, n.W, n.H, 8)
		dc.Stroke()

		dc.SetColor(colorText)
		dc.DrawStringAnchored(n.Name, n.X+8, n.Y+16, 0, 0.5)
		dc.SetColor(colorSubtle)
		label := n.ID
		if n.Deceased {
			label += " †"
		}
		dc.DrawStringAnchored(label, n.X+8, n.Y+32, 0, 0.5)
	}

	return dc.SavePNG(path)
}

func renderSVG(w io.Writer, sc scene) error {
	canvas := svg.New(w)
	canvas.Start(sc.Width, sc.Height)
	canvas.Rect(0, 0, sc.Width, sc.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, sc.Width-32, int(headerHeight-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	drawSummarySVG(canvas, sc)

	for _, e := range sc.Edges {
		stroke := colorEdge
		if e.Spouse {
			stroke = colorSpouse
		}
		canvas.Line(int(e.X1), int(e.Y1), int(e.X2), int(e.Y2),
			fmt.Sprintf("stroke:%s;stroke-width:2", css(stroke)))
	}

	for _, n := range sc.Nodes {
		canvas.Roundrect(int(n.X), int(n.Y), int(n.W), int(n.H), 8, 8,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.2", css(genderColor(n.Gender)), css(colorStroke)))
		canvas.Text(int(n.X)+8, int(n.Y)+18, n.Name,
			fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
		label := n.ID
		if n.Deceased {
			label += " †"
		}
		canvas.Text(int(n.X)+8, int(n.Y)+36, label,
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}

	canvas.End()
	return nil
}

func drawSummary(dc *gg.Context, sc scene) {
	dc.SetColor(colorText)
	dc.DrawStringAnchored(sc.Summary.Title, 32, 40, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(fmt.Sprintf("layout v%d", sc.Summary.Version), 32, 58, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("people: %d  connections: %d  excluded: %d",
		sc.Summary.NodeCount, sc.Summary.EdgeCount, sc.Summary.Excluded), 32, 76, 0, 0.5)
}

func drawSummarySVG(canvas *svg.SVG, sc scene) {
	canvas.Text(32, 40, sc.Summary.Title,
		fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(32, 58, fmt.Sprintf("layout v%d", sc.Summary.Version),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	canvas.Text(32, 76, fmt.Sprintf("people: %d  connections: %d  excluded: %d",
		sc.Summary.NodeCount, sc.Summary.EdgeCount, sc.Summary.Excluded),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
