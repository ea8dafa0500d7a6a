package viewer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ANSI escape codes for positioning and styling.
const (
	reset     = "\x1b[0m"
	bold      = "\x1b[1m"
	dim       = "\x1b[2m"
	bgBlack   = "\x1b[40m"
	fgWhite   = "\x1b[97m"
	fgGreen   = "\x1b[92m"
	fgYellow  = "\x1b[93m"
	fgCyan    = "\x1b[96m"
	clearLine = "\x1b[2K"
)

func moveTo(row, col int) string {
	return fmt.Sprintf("\x1b[%d;%dH", row, col)
}

// HUD renders an overlay with the blob settings, material and FPS.
type HUD struct {
	fps       float64
	fpsFrames int
	fpsTime   time.Time
}

// NewHUD creates a new HUD.
func NewHUD() *HUD {
	return &HUD{fpsTime: time.Now()}
}

// UpdateFPS updates the FPS counter. Call once per frame.
func (h *HUD) UpdateFPS() {
	h.fpsFrames++
	elapsed := time.Since(h.fpsTime)
	if elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = time.Now()
	}
}

// Render writes the overlay for a width x height cell terminal.
func (h *HUD) Render(w io.Writer, width, height int, v *Viewer) {
	// Always clear the HUD rows so toggling off works
	fmt.Fprint(w, moveTo(1, 1)+clearLine)
	fmt.Fprint(w, moveTo(height, 1)+clearLine)

	if v.LightMode {
		msg := fmt.Sprintf("%s%s%s ◉ LIGHT MODE - Move mouse to position, click to set, Esc to cancel %s",
			bgBlack, bold, fgYellow, reset)
		fmt.Fprint(w, moveTo(height, max((width-60)/2, 1))+msg)
		return
	}

	if v.ShowHUD {
		h.renderTop(w, width, v)
		renderPicker(w, height, v)
	}

	if notice, ok := v.Notice(); ok {
		fmt.Fprint(w, moveTo(height, 1)+fmt.Sprintf("%s%s%s %s %s", bgBlack, bold, fgYellow, notice, reset))
		return
	}
	if v.ShowHUD {
		renderBottom(w, width, height, v)
	}
}

func (h *HUD) renderTop(w io.Writer, width int, v *Viewer) {
	fmt.Fprintf(w, "%s%s%s %.0f FPS %s", moveTo(1, 1), bgBlack, fgGreen, h.fps, reset)

	name := v.Registry.Name(v.ActiveMaterial())
	col := max((width-len(name)-2)/2, 1)
	fmt.Fprintf(w, "%s%s%s%s %s %s", moveTo(1, col), bold, bgBlack, fgWhite, name, reset)

	seed := fmt.Sprintf("seed %d", v.Seed())
	if v.Pending() {
		seed += " …"
	}
	fmt.Fprintf(w, "%s%s%s%s %s %s", moveTo(1, max(width-len(seed)-2, 1)), bgBlack, fgCyan, bold, seed, reset)
}

func renderBottom(w io.Writer, width, height int, v *Viewer) {
	checkTex := "[ ]"
	if v.TextureEnabled && v.RenderMode != RenderModeWireframe {
		checkTex = "[✓]"
	}
	checkWire := "[ ]"
	if v.RenderMode == RenderModeWireframe {
		checkWire = "[✓]"
	}
	fmt.Fprintf(w, "%s%s%s growth %.0f  edges %d  %d polys  %s Texture  %s X-Ray %s",
		moveTo(height, 1), bgBlack, fgWhite, v.Settings.Growth, v.Settings.Edges, v.Triangles(), checkTex, checkWire, reset)

	hint := "[ ] growth  , . edges  n material  space new"
	fmt.Fprintf(w, "%s%s%s%s %s %s", moveTo(height, max(width-len(hint)-2, 1)), bgBlack, dim, fgYellow, hint, reset)
}

// The material picker lists the manifest down the left edge, starting at
// this (1-based) terminal row.
const pickerTop = 3

// pickerRows returns the labels that fit above the bottom bar, padded to
// one width so a row fully overwrites its previous text.
func pickerRows(height int, v *Viewer) []string {
	ids := v.Registry.IDs()
	n := min(len(ids), height-pickerTop)
	if n <= 0 {
		return nil
	}
	rows := make([]string, n)
	width := 0
	for i := range n {
		key := " "
		if i < 9 {
			key = strconv.Itoa(i + 1)
		}
		rows[i] = fmt.Sprintf("%s %s", key, v.Registry.Name(ids[i]))
		width = max(width, utf8.RuneCountInString(rows[i]))
	}
	for i, r := range rows {
		rows[i] = r + strings.Repeat(" ", width-utf8.RuneCountInString(r))
	}
	return rows
}

func renderPicker(w io.Writer, height int, v *Viewer) {
	ids := v.Registry.IDs()
	for i, row := range pickerRows(height, v) {
		style, mark := fgWhite+dim, " "
		if ids[i] == v.ActiveMaterial() {
			style, mark = fgGreen+bold, "▸"
		}
		fmt.Fprintf(w, "%s%s%s%s%s %s", moveTo(pickerTop+i, 1), bgBlack, style, mark, row, reset)
	}
}

// PickMaterial selects the picker entry under the 0-based cell x, y of a
// terminal height rows tall. It reports whether the click hit the picker.
func PickMaterial(v *Viewer, x, y, height int) bool {
	if !v.ShowHUD || v.LightMode {
		return false
	}
	rows := pickerRows(height, v)
	i := y + 1 - pickerTop
	if i < 0 || i >= len(rows) || x < 0 || x >= utf8.RuneCountInString(rows[i])+1 {
		return false
	}
	_ = v.SelectMaterial(v.Registry.IDs()[i])
	return true
}
