package importer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshview/internal/scene"
)

// mtlTextureSlots maps MTL map statements to texture slots. bump is a height
// map by convention; norm carries tangent-space normals.
var mtlTextureSlots = map[string]scene.TextureType{
	"map_kd":   scene.TextureDiffuse,
	"map_ks":   scene.TextureSpecular,
	"map_kn":   scene.TextureNormals,
	"norm":     scene.TextureNormals,
	"map_bump": scene.TextureHeight,
	"bump":     scene.TextureHeight,
	"map_disp": scene.TextureHeight,
	"disp":     scene.TextureHeight,
}

// mtlStatements are the statements the decoder understands, keyed by their
// lowercase form.
var mtlStatements = map[string]string{
	"newmtl": "newmtl",
	"ka":     "Ka",
	"kd":     "Kd",
	"ks":     "Ks",
	"ke":     "Ke",
	"ns":     "Ns",
	"ni":     "Ni",
	"d":      "d",
	"illum":  "illum",
	"map_kd": "map_Kd",
}

type mtlTexture struct {
	slot scene.TextureType
	path string
}

// mtlLibrary is what the line scan collects before decoding.
type mtlLibrary struct {
	names    []string
	textures map[string][]mtlTexture
	body     bytes.Buffer
}

// scanMTL keeps the decoder-supported statements of every material, in their
// canonical spelling, and collects the texture maps. Statements before the
// first newmtl have nothing to attach to and are dropped.
func scanMTL(r io.Reader) (*mtlLibrary, error) {
	lib := &mtlLibrary{textures: make(map[string][]mtlTexture)}
	cur := ""

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		ident, args := strings.ToLower(fields[0]), fields[1:]

		if ident == "newmtl" {
			if len(args) == 0 {
				return nil, errors.New("newmtl without a name")
			}
			cur = args[0]
			lib.names = append(lib.names, cur)
		}
		if cur == "" {
			continue
		}

		if slot, ok := mtlTextureSlots[ident]; ok && len(args) > 0 {
			// Options such as "-bm 0.5" precede the file name.
			lib.textures[cur] = append(lib.textures[cur], mtlTexture{slot, args[len(args)-1]})
		}
		canon, ok := mtlStatements[ident]
		if !ok || ident == "map_kd" {
			continue
		}
		if (ident == "ka" || ident == "kd" || ident == "ks" || ident == "ke") && len(args) == 1 {
			// A single value is a grey.
			args = []string{args[0], args[0], args[0]}
		}
		lib.body.WriteString(canon)
		for _, a := range args {
			lib.body.WriteByte(' ')
			lib.body.WriteString(a)
		}
		lib.body.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lib, nil
}

// ParseMTL reads an MTL material library. Colours and shininess come from
// the g3n decoder; texture maps are taken from the line scan since the decoder
// keeps only the diffuse one.
func ParseMTL(r io.Reader) ([]*scene.Material, error) {
	lib, err := scanMTL(r)
	if err != nil {
		return nil, err
	}

	dec, err := obj.DecodeReader(strings.NewReader(""), bytes.NewReader(lib.body.Bytes()))
	if err != nil {
		return nil, err
	}

	mats := make([]*scene.Material, 0, len(lib.names))
	seen := make(map[string]bool, len(lib.names))
	for _, name := range lib.names {
		if seen[name] {
			continue
		}
		seen[name] = true

		src := dec.Materials[name]
		if src == nil || src.Name != name {
			// The decoder swaps in its default material when a statement
			// fails to parse.
			return nil, fmt.Errorf("material %s: %s", name, strings.Join(dec.Warnings, "; "))
		}

		m := scene.NewMaterial(name)
		m.Ambient = mgl32.Vec3{src.Ambient.R, src.Ambient.G, src.Ambient.B}
		m.Diffuse = mgl32.Vec3{src.Diffuse.R, src.Diffuse.G, src.Diffuse.B}
		m.Specular = mgl32.Vec3{src.Specular.R, src.Specular.G, src.Specular.B}
		m.Shininess = src.Shininess
		for _, t := range lib.textures[name] {
			m.AddTexture(t.slot, t.path)
		}
		mats = append(mats, m)
	}
	return mats, nil
}
