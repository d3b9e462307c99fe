package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aligator/rsfs"
	"github.com/spf13/afero"
)

// main is just an example main to play with RSFS.
// It creates a volume inside an in-memory image, writes some files and reads them back.
func main() {
	image, err := rsfs.OpenImage(afero.NewMemMapFs(), "example.img")
	if err != nil {
		fmt.Println("could not open the image", err)
		os.Exit(1)
	}

	fs, err := rsfs.New(image, rsfs.WithLabel("EXAMPLE"))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	fmt.Printf("Opened volume '%v' with id %v\n\n", fs.Label(), fs.Volume().ID())

	files := map[string]string{
		"README.md": "# RSFS\n\nA really simple file system.\n",
		"long.txt":  strings.Repeat("All work and no play. ", 500),
	}
	for name, content := range files {
		if err := afero.WriteFile(fs, name, []byte(content), 0666); err != nil {
			fmt.Println("could not write", name, err)
			os.Exit(1)
		}
	}

	afero.Walk(fs, "/", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			fmt.Println(err)
			return err
		}
		fmt.Println(path, info.IsDir(), info.Size())
		return nil
	})

	content, err := afero.ReadFile(fs, "README.md")
	if err != nil {
		fmt.Println("could not read the file", err)
		os.Exit(1)
	}
	fmt.Println("\n\nContent of README.md:\n\n" + string(content))

	free, err := fs.Volume().Free()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	fmt.Printf("%d bytes free\n\n", free)
	fmt.Print(rsfs.FormatListing(mustList(fs.Volume())))
}

func mustList(volume *rsfs.Volume) []rsfs.DirEntry {
	entries, err := volume.List()
	if err != nil {
		panic(err)
	}
	return entries
}
