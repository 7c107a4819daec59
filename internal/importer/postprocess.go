package importer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshview/internal/scene"
)

// PostProcess is a bit set of scene clean-up steps run after reading.
type PostProcess uint32

const (
	// Triangulate splits polygons into triangle fans and drops points and lines.
	Triangulate PostProcess = 1 << iota
	// ValidateIndices drops faces that reference missing vertices and
	// attribute arrays whose length does not match the position array.
	ValidateIndices
	// FlipUVs maps v to 1-v for bottom-left UV origin formats.
	FlipUVs
	// GenSmoothNormals computes vertex normals for meshes that have none.
	GenSmoothNormals
	// CalcTangentSpace computes tangents and bitangents for meshes that have
	// normals and a first UV channel but no tangent frame.
	CalcTangentSpace
)

// DefaultPostProcess is the policy the model loader imports with.
const DefaultPostProcess = Triangulate | ValidateIndices | FlipUVs | GenSmoothNormals | CalcTangentSpace

// Has reports whether every bit of step is set.
func (p PostProcess) Has(step PostProcess) bool {
	return p&step == step
}

// Apply runs the steps selected by flags on every mesh of s, in a fixed order.
func Apply(s *scene.Scene, flags PostProcess) {
	for _, m := range s.Meshes {
		if m == nil {
			continue
		}
		if flags.Has(Triangulate) {
			TriangulateMesh(m)
		}
		if flags.Has(ValidateIndices) {
			ValidateMesh(m)
		}
		if flags.Has(FlipUVs) && !s.UVTopLeft {
			FlipMeshUVs(m)
		}
		if flags.Has(GenSmoothNormals) && !m.HasNormals() {
			SmoothNormals(m)
		}
		if flags.Has(CalcTangentSpace) && !m.HasTangentSpace() {
			TangentSpace(m)
		}
	}
}

// TriangulateMesh replaces every polygon of m by a triangle fan.
func TriangulateMesh(m *scene.Mesh) {
	faces := make([]scene.Face, 0, len(m.Faces))
	for _, f := range m.Faces {
		n := len(f.Indices)
		if n < 3 {
			continue
		}
		if n == 3 {
			faces = append(faces, f)
			continue
		}
		for i := 1; i+1 < n; i++ {
			faces = append(faces, scene.Face{Indices: []uint32{f.Indices[0], f.Indices[i], f.Indices[i+1]}})
		}
	}
	m.Faces = faces
}

// ValidateMesh enforces the index and attribute length invariants of m.
func ValidateMesh(m *scene.Mesh) {
	n := len(m.Positions)
	if len(m.Normals) != n {
		m.Normals = nil
	}
	if len(m.Tangents) != n || len(m.Bitangents) != n {
		m.Tangents, m.Bitangents = nil, nil
	}
	channels := m.TexCoords[:0]
	for _, ch := range m.TexCoords {
		if len(ch) == n {
			channels = append(channels, ch)
		}
	}
	m.TexCoords = channels

	faces := m.Faces[:0]
	for _, f := range m.Faces {
		ok := true
		for _, idx := range f.Indices {
			if int(idx) >= n {
				ok = false
				break
			}
		}
		if ok {
			faces = append(faces, f)
		}
	}
	m.Faces = faces
}

// FlipMeshUVs maps v to 1-v on every UV channel of m.
func FlipMeshUVs(m *scene.Mesh) {
	for _, ch := range m.TexCoords {
		for i := range ch {
			ch[i][1] = 1 - ch[i][1]
		}
	}
}

// SmoothNormals computes area-weighted vertex normals and averages them
// across vertices that share a position, so split seams shade smoothly.
func SmoothNormals(m *scene.Mesh) {
	const epsilon float32 = 0.001

	normals := make([]mgl32.Vec3, len(m.Positions))
	for _, f := range m.Faces {
		a, b, c, ok := triangle(f, len(m.Positions))
		if !ok {
			continue
		}
		p0, p1, p2 := m.Positions[a], m.Positions[b], m.Positions[c]
		// Unnormalized cross product weighs by triangle area.
		fn := p1.Sub(p0).Cross(p2.Sub(p0))
		normals[a] = normals[a].Add(fn)
		normals[b] = normals[b].Add(fn)
		normals[c] = normals[c].Add(fn)
	}

	// Group vertices by quantized position for O(n) lookup
	posMap := make(map[[3]int32][]int)
	for i, p := range m.Positions {
		key := [3]int32{int32(p[0] / epsilon), int32(p[1] / epsilon), int32(p[2] / epsilon)}
		posMap[key] = append(posMap[key], i)
	}

	out := make([]mgl32.Vec3, len(m.Positions))
	for _, idxs := range posMap {
		var sum mgl32.Vec3
		for _, i := range idxs {
			sum = sum.Add(normals[i])
		}
		avg := normalize(sum)
		for _, i := range idxs {
			out[i] = avg
		}
	}
	m.Normals = out
}

// TangentSpace computes per-vertex tangents and bitangents from UV channel 0.
// Meshes without normals or UVs are left unchanged.
func TangentSpace(m *scene.Mesh) {
	if !m.HasNormals() || !m.HasTexCoords(0) {
		return
	}
	uv := m.TexCoords[0]
	tan := make([]mgl32.Vec3, len(m.Positions))
	bit := make([]mgl32.Vec3, len(m.Positions))

	limit := min(len(m.Positions), len(uv))
	for _, f := range m.Faces {
		a, b, c, ok := triangle(f, limit)
		if !ok {
			continue
		}
		e1 := m.Positions[b].Sub(m.Positions[a])
		e2 := m.Positions[c].Sub(m.Positions[a])
		d1 := uv[b].Sub(uv[a])
		d2 := uv[c].Sub(uv[a])

		det := d1[0]*d2[1] - d2[0]*d1[1]
		if det > -1e-8 && det < 1e-8 {
			continue
		}
		r := 1 / det
		t := e1.Mul(d2[1]).Sub(e2.Mul(d1[1])).Mul(r)
		bt := e2.Mul(d1[0]).Sub(e1.Mul(d2[0])).Mul(r)
		for _, i := range f.Indices {
			tan[i] = tan[i].Add(t)
			bit[i] = bit[i].Add(bt)
		}
	}

	for i := range tan {
		if i >= len(m.Normals) {
			break
		}
		n, t := m.Normals[i], tan[i]
		if t.Len() < 1e-8 {
			// No usable UV gradient touches this vertex.
			tan[i], bit[i] = mgl32.Vec3{}, mgl32.Vec3{}
			continue
		}
		// Gram-Schmidt against the normal, then keep the UV handedness.
		t = normalize(t.Sub(n.Mul(n.Dot(t))))
		b := n.Cross(t)
		if b.Dot(bit[i]) < 0 {
			b = b.Mul(-1)
		}
		tan[i], bit[i] = t, b
	}
	m.Tangents, m.Bitangents = tan, bit
}

// triangle returns the corners of f when it is a triangle whose indices are
// all below n.
func triangle(f scene.Face, n int) (a, b, c uint32, ok bool) {
	if len(f.Indices) != 3 {
		return 0, 0, 0, false
	}
	for _, i := range f.Indices {
		if int(i) >= n {
			return 0, 0, 0, false
		}
	}
	return f.Indices[0], f.Indices[1], f.Indices[2], true
}

// normalize returns a unit vector in the direction of v, or +Y when v is
// too short to have a direction.
func normalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l < 0.0001 {
		return mgl32.Vec3{0, 1, 0}
	}
	return v.Mul(1 / l)
}
