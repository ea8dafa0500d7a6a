package materials

// MaterialHolder is anything drawn with a replaceable material.
type MaterialHolder interface {
	Material() *Material
	SetMaterial(*Material)
}

// Swap assigns next to target after disposing the material it replaces.
// It reports whether anything changed; swapping in the current material
// does nothing.
func Swap(target MaterialHolder, next *Material) bool {
	prev := target.Material()
	if prev == next {
		return false
	}
	if prev != nil {
		prev.Dispose()
	}
	target.SetMaterial(next)
	return true
}

// SwapAll assigns next to every target. Each distinct previous material
// is disposed once, however many targets shared it. It returns the
// number of materials disposed.
func SwapAll[H MaterialHolder](targets []H, next *Material) int {
	disposed := make(map[*Material]struct{})
	for _, t := range targets {
		prev := t.Material()
		if prev == next {
			continue
		}
		if prev != nil {
			if _, done := disposed[prev]; !done {
				prev.Dispose()
				disposed[prev] = struct{}{}
			}
		}
		t.SetMaterial(next)
	}
	return len(disposed)
}
