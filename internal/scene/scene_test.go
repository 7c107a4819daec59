package scene

import (
	"errors"
	"testing"
)

func TestMaterialTexture(t *testing.T) {
	var nilMat *Material
	if _, ok := nilMat.Texture(TextureDiffuse); ok {
		t.Error("expected nil material to have no textures")
	}

	m := &Material{}
	m.AddTexture(TextureSpecular, "a.png")
	m.AddTexture(TextureSpecular, "b.png")
	p, ok := m.Texture(TextureSpecular)
	if !ok || p != "a.png" {
		t.Errorf("expected first specular path a.png, got %q", p)
	}
	if _, ok := m.Texture(TextureHeight); ok {
		t.Error("expected empty height slot")
	}
}

func TestTextureTypeString(t *testing.T) {
	tests := []struct {
		t    TextureType
		want string
	}{
		{TextureDiffuse, "Diffuse"},
		{TextureSpecular, "Specular"},
		{TextureNormals, "Normals"},
		{TextureHeight, "Height"},
		{TextureType(9), "Unknown(9)"},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestWalkPreOrder(t *testing.T) {
	root := NewNode("root")
	a := root.AddChild(NewNode("a"))
	a.AddChild(NewNode("a1"))
	root.AddChild(NewNode("b")).Meshes = []int{0, 1}
	a.Meshes = []int{2}
	root.Children = append(root.Children, nil)

	s := &Scene{Root: root}
	var order []string
	var depths []int
	err := s.Walk(func(n *Node, depth int) error {
		order = append(order, n.Name)
		depths = append(depths, depth)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"root", "a", "a1", "b"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
	if depths[2] != 2 {
		t.Errorf("expected a1 at depth 2, got %d", depths[2])
	}
	if got := s.MeshRefs(); got != 3 {
		t.Errorf("expected 3 mesh refs, got %d", got)
	}

	stop := errors.New("stop")
	visited := 0
	err = s.Walk(func(*Node, int) error {
		visited++
		return stop
	})
	if !errors.Is(err, stop) || visited != 1 {
		t.Errorf("expected walk to stop after first node, visited %d", visited)
	}
}

func TestSceneMaterial(t *testing.T) {
	s := &Scene{Materials: []*Material{NewMaterial("m")}}
	if s.Material(&Mesh{MaterialIndex: 0}).Name != "m" {
		t.Error("expected material m")
	}
	if s.Material(&Mesh{MaterialIndex: -1}) != nil || s.Material(&Mesh{MaterialIndex: 3}) != nil {
		t.Error("expected nil for out-of-range material index")
	}
}

func TestEmbeddedKey(t *testing.T) {
	if EmbeddedKey(2) != "*2" || !IsEmbedded("*2") {
		t.Error("expected *2 embedded key")
	}
	if IsEmbedded("*") || IsEmbedded("tex.png") {
		t.Error("unexpected embedded path")
	}
}
