// meshinfo imports model files and prints their mesh statistics without
// opening a window.
package main

import (
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/Faultbox/meshview/internal/engine/model"
	"github.com/Faultbox/meshview/internal/engine/texture"
	"github.com/Faultbox/meshview/internal/importer"
	"github.com/Faultbox/meshview/internal/logger"
)

func main() {
	flags := flag.Uint("flags", uint(importer.DefaultPostProcess), "Post-process step bit set")
	verbose := flag.Bool("v", false, "Print every mesh")
	logLevel := flag.String("log", "warn", "Log level")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() == 0 {
		printUsage()
		os.Exit(1)
	}

	if err := logger.Init(*logLevel, ""); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	files, walked, err := collect(flag.Args(), importer.Default)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "No supported files found")
		os.Exit(1)
	}

	var bar *progressbar.ProgressBar
	if walked {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("importing"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	cache := texture.NewCache()
	var reports []string
	failed := 0
	for _, path := range files {
		var sb strings.Builder
		if err := report(&sb, path, importer.PostProcess(*flags), cache, *verbose); err != nil {
			fmt.Fprintf(&sb, "%s: error: %v\n", path, err)
			failed++
		}
		reports = append(reports, sb.String())
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Close()
	}

	for _, r := range reports {
		fmt.Print(r)
	}
	hits, _ := cache.Stats()
	fmt.Printf("\n%d file(s), %d failed, %d texture lookups shared\n", len(files), failed, hits)

	if failed > 0 {
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `meshinfo - model import inspector

Usage:
  meshinfo [options] <file|dir>...

Directories are walked for files with a supported extension (%s).

Options:
`, strings.Join(importer.Default.Extensions(), ", "))
	flag.PrintDefaults()
}

// collect expands directories into the supported files below them. walked
// reports whether any directory was expanded.
func collect(args []string, reg *importer.Registry) (files []string, walked bool, err error) {
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, false, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		walked = true
		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && reg.Supported(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, false, err
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, walked, nil
}

// report imports path and writes its summary to w.
func report(w io.Writer, path string, flags importer.PostProcess, cache *texture.Cache, verbose bool) error {
	m := model.New(model.WithPostProcess(flags), model.WithTextureCache(cache))
	if err := m.LoadSceneFromFile(path); err != nil {
		return err
	}

	meshes := m.Meshes()
	size := m.Bounds().Size()
	fmt.Fprintf(w, "%s: %d mesh(es), %d vertices, %d indices, size %.3g x %.3g x %.3g\n",
		path, len(meshes), m.VertexCount(), m.IndexCount(), size.X(), size.Y(), size.Z())

	if !verbose {
		return nil
	}
	for i, mesh := range meshes {
		name := mesh.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		fmt.Fprintf(w, "  %-24s %8d verts %8d idx  material %q\n",
			name, mesh.VertexCount(), mesh.IndexCount(), mesh.Material().Name)
		for _, tex := range mesh.Textures() {
			fmt.Fprintf(w, "    %-9s %s\n", tex.Type, tex.Path)
		}
	}
	return nil
}
