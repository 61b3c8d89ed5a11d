package editor

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/example/maskedit/internal/mapper"
	"github.com/example/maskedit/internal/mask"
)

// Command is one line of a stroke script.
type Command struct {
	Line   int
	Op     string
	Points []mapper.Point
	Value  int
	Mode   mask.Mode
	View   mapper.Rect
}

// Script is a parsed stroke script. Scripts let the command line replay the
// gestures a pointer would produce:
//
//	view 0,0,200,300        # on-screen rectangle used by tap and drag
//	mode erase
//	width 40
//	stroke 10,10 10,200     # image pixels
//	drag 5,5 5,100          # display units, mapped through the view
//	tap 50,60
//	undo
//	clear
//	restore
type Script []Command

// ParseScript reads a script. Blank lines and # comments are skipped.
func ParseScript(r io.Reader) (Script, error) {
	var out Script
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text, _, _ := strings.Cut(sc.Text(), "#")
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		cmd, err := parseCommand(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		cmd.Line = line
		out = append(out, cmd)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseCommand(fields []string) (Command, error) {
	op, args := strings.ToLower(fields[0]), fields[1:]
	cmd := Command{Op: op}
	switch op {
	case "undo", "clear", "restore":
		if len(args) != 0 {
			return cmd, fmt.Errorf("%s takes no arguments", op)
		}
	case "mode":
		if len(args) != 1 {
			return cmd, fmt.Errorf("mode needs paint, erase or restore")
		}
		m, err := mask.ParseMode(args[0])
		if err != nil {
			return cmd, err
		}
		cmd.Mode = m
	case "width":
		if len(args) != 1 {
			return cmd, fmt.Errorf("width needs one number")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return cmd, fmt.Errorf("bad width %q", args[0])
		}
		cmd.Value = n
	case "stroke", "drag", "tap":
		if len(args) == 0 || (op == "tap" && len(args) != 1) {
			return cmd, fmt.Errorf("%s needs x,y points", op)
		}
		for _, a := range args {
			p, err := parsePoint(a)
			if err != nil {
				return cmd, err
			}
			cmd.Points = append(cmd.Points, p)
		}
	case "view":
		if len(args) != 1 {
			return cmd, fmt.Errorf("view needs left,top,width,height")
		}
		v, err := parseFloats(args[0], 4)
		if err != nil {
			return cmd, err
		}
		if v[2] <= 0 || v[3] <= 0 {
			return cmd, fmt.Errorf("view must have a positive size")
		}
		cmd.View = mapper.Rect{Left: v[0], Top: v[1], Width: v[2], Height: v[3]}
	default:
		return cmd, fmt.Errorf("unknown command %q", op)
	}
	return cmd, nil
}

func parsePoint(s string) (mapper.Point, error) {
	v, err := parseFloats(s, 2)
	if err != nil {
		return mapper.Point{}, err
	}
	return mapper.Point{X: v[0], Y: v[1]}, nil
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("%q: want %d comma separated numbers", s, n)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}

// Run replays script against the loaded session. Display-space commands
// use the last view, which defaults to the image at its native size.
func (s *Session) Run(script Script) error {
	surface := s.Surface()
	if surface == nil {
		return &InputError{Op: "run script", Err: ErrNoImage}
	}
	canvas := mapper.Canvas{
		Rect:         mapper.Rect{Width: float64(surface.Width()), Height: float64(surface.Height())},
		BufferWidth:  surface.Width(),
		BufferHeight: surface.Height(),
	}
	for _, cmd := range script {
		if err := s.apply(cmd, &canvas); err != nil {
			return fmt.Errorf("line %d: %w", cmd.Line, err)
		}
	}
	return nil
}

func (s *Session) apply(cmd Command, canvas *mapper.Canvas) error {
	switch cmd.Op {
	case "mode":
		return s.SetMode(cmd.Mode)
	case "width":
		s.SetBrushWidth(cmd.Value)
	case "view":
		canvas.Rect = cmd.View
	case "stroke":
		if !s.BeginStroke(s.Mode()) {
			return fmt.Errorf("cannot start a %s stroke", s.Mode())
		}
		pts := cmd.Points
		s.ExtendStroke(pts[0], pts[0])
		for i := 1; i < len(pts); i++ {
			s.ExtendStroke(pts[i-1], pts[i])
		}
		s.EndStroke()
	case "drag", "tap":
		pts := cmd.Points
		if !s.PointerDown(mapper.MouseEvent(pts[0].X, pts[0].Y), *canvas) {
			return nil
		}
		if cmd.Op == "tap" {
			// a move in place marks the dot
			pts = append(pts[:1:1], pts[0])
		}
		for _, p := range pts[1:] {
			s.PointerMove(mapper.MouseEvent(p.X, p.Y), *canvas)
		}
		s.PointerUp()
	case "undo":
		s.Undo()
	case "clear":
		s.Clear()
	case "restore":
		return s.Restore()
	}
	return nil
}
