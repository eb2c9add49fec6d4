package room

// palette is handed out in join order; colors are reused once players leave.
var palette = []string{
	"#e6194b", // red
	"#3cb44b", // green
	"#4363d8", // blue
	"#ffe119", // yellow
	"#f58231", // orange
	"#911eb4", // purple
	"#42d4f4", // cyan
	"#f032e6", // magenta
}

// pickColor returns the first palette color not in use.
func pickColor(used map[string]bool) string {
	for _, c := range palette {
		if !used[c] {
			return c
		}
	}
	return palette[len(used)%len(palette)]
}
