// objtool is a CLI utility for inspecting and validating OBJ models.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "check":
		cmdCheck(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`objtool - OBJ/MTL model utility

Usage:
  objtool <command> [options]

Commands:
  info <file.obj>              Show partitions, materials and textures
  check [-decode] <paths...>   Validate files or directories of .obj files

Examples:
  objtool info assets/house.obj
  objtool check assets/
  objtool check -decode assets/house.obj assets/tree.obj`)
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: objtool info <file.obj>")
		os.Exit(1)
	}

	r, err := Inspect(args[0], false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Model:     %s\n", r.Path)
	fmt.Printf("Positions: %d\n", r.Positions)
	fmt.Printf("Normals:   %d\n", r.Normals)
	fmt.Printf("TexCoords: %d\n", r.TexCoords)
	fmt.Printf("Faces:     %d (%d vertices)\n", r.Faces, r.Vertices())
	fmt.Println()

	fmt.Println("Partitions:")
	for _, p := range r.Partitions {
		mark := ""
		if !p.Defined {
			mark = "  (white)"
		}
		fmt.Printf("  %-24s %6d faces%s\n", p.Material, p.Faces, mark)
	}

	if len(r.Libraries) > 0 {
		fmt.Println()
		fmt.Println("Materials:")
	}
	for _, lib := range r.Libraries {
		if lib.Err != nil {
			fmt.Printf("  %s: %v\n", lib.Path, lib.Err)
			continue
		}
		fmt.Printf("  %s\n", lib.Path)
		for _, m := range lib.Materials {
			switch {
			case m.DiffuseMap == "":
				fmt.Printf("    %-22s (no texture)\n", m.Name)
			case m.MapErr != nil:
				fmt.Printf("    %-22s %s (missing)\n", m.Name, m.DiffuseMap)
			default:
				fmt.Printf("    %-22s %s\n", m.Name, m.DiffuseMap)
			}
		}
	}
}

func cmdCheck(args []string) {
	flags := flag.NewFlagSet("check", flag.ExitOnError)
	decode := flags.Bool("decode", false, "Decode every texture instead of only checking it exists")
	flags.Parse(args)

	if flags.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: objtool check [-decode] <paths...>")
		os.Exit(1)
	}

	files, err := collectOBJ(flags.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "No .obj files found")
		os.Exit(1)
	}

	failures := make(map[string]error)
	bar := progressbar.Default(int64(len(files)), "checking")
	for _, f := range files {
		bar.Describe(filepath.Base(f))
		if err := Check(f, *decode); err != nil {
			failures[f] = err
		}
		bar.Add(1)
	}
	bar.Close()

	if len(failures) == 0 {
		fmt.Printf("%d files OK\n", len(files))
		return
	}

	names := make([]string, 0, len(failures))
	for f := range failures {
		names = append(names, f)
	}
	sort.Strings(names)
	for _, f := range names {
		fmt.Fprintf(os.Stderr, "FAIL %s\n", f)
		for _, line := range strings.Split(failures[f].Error(), "\n") {
			fmt.Fprintf(os.Stderr, "  %s\n", line)
		}
	}
	fmt.Fprintf(os.Stderr, "%d of %d files failed\n", len(failures), len(files))
	os.Exit(1)
}

// collectOBJ expands directories into the .obj files below them.
func collectOBJ(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".obj") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
