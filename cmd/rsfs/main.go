package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aligator/rsfs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// device is a BlockDevice which has to be flushed and closed after use.
type device interface {
	rsfs.BlockDevice
	Sync() error
	Close() error
}

// app carries the state shared by all commands of one invocation.
type app struct {
	config *Config
	log    *logrus.Logger
	device device
}

func (a *app) before(c *cli.Context) error {
	config, err := LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("image") {
		config.Image = c.String("image")
	}
	if c.IsSet("raw") {
		config.Raw = c.Bool("raw")
	}
	if c.IsSet("log-level") {
		config.LogLevel = c.String("log-level")
	}
	if err := config.Validate(); err != nil {
		return err
	}

	a.config = config
	a.log = config.Logger()
	return nil
}

// openDevice opens the configured image or raw device. It is closed in after.
func (a *app) openDevice() error {
	if a.config.Raw {
		dev, err := rsfs.OpenRawDevice(a.config.Image)
		if err != nil {
			return err
		}
		a.device = dev
		return nil
	}

	dev, err := rsfs.OpenImage(afero.NewOsFs(), a.config.Image)
	if err != nil {
		return err
	}
	a.device = dev
	return nil
}

func (a *app) options() []rsfs.Option {
	return []rsfs.Option{rsfs.WithLogger(a.log), rsfs.WithLabel(a.config.Label)}
}

// mount opens the configured device and mounts the volume on it.
func (a *app) mount() (*rsfs.Fs, error) {
	if err := a.openDevice(); err != nil {
		return nil, err
	}

	a.log.WithField("image", a.config.Image).Debug("mounting volume")
	return rsfs.New(a.device, a.options()...)
}

func (a *app) after(c *cli.Context) error {
	if a.device == nil {
		return nil
	}
	if err := a.device.Sync(); err != nil {
		a.device.Close()
		return err
	}
	return a.device.Close()
}

// withVolume mounts the volume before running action.
func (a *app) withVolume(action func(c *cli.Context, fs *rsfs.Fs) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		fs, err := a.mount()
		if err != nil {
			return err
		}
		return action(c, fs)
	}
}

// args returns the positional arguments if there are between min and max of them, otherwise it fails with the usage text.
func args(c *cli.Context, min, max int) ([]string, error) {
	if c.NArg() < min || c.NArg() > max {
		return nil, fmt.Errorf("%s: expected %d to %d arguments, got %d\nusage: %s %s", c.Command.Name, min, max, c.NArg(), c.Command.Name, c.Command.ArgsUsage)
	}
	return c.Args().Slice(), nil
}

func main() {
	a := &app{}

	application := &cli.App{
		Name:    "rsfs",
		Usage:   "manage files on an RSFS volume image",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a yaml config file"},
			&cli.StringFlag{Name: "image", Aliases: []string{"i"}, Usage: "volume image or device path"},
			&cli.BoolFlag{Name: "raw", Usage: "access the image as raw unix device"},
			&cli.StringFlag{Name: "log-level", Usage: "logrus log level"},
		},
		Before: a.before,
		After:  a.after,

		Commands: []*cli.Command{
			{
				Name:  "format",
				Usage: "initialize an empty volume",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "label", Usage: "volume label (11 bytes)"},
				},
				Action: func(c *cli.Context) error {
					if c.IsSet("label") {
						a.config.Label = c.String("label")
					}
					if err := a.openDevice(); err != nil {
						return err
					}
					return rsfs.NewVolume(a.device, a.options()...).Format()
				},
			},
			{
				Name:  "info",
				Usage: "show volume id, label and free space",
				Action: a.withVolume(func(c *cli.Context, fs *rsfs.Fs) error {
					free, err := fs.Volume().Free()
					if err != nil {
						return err
					}
					entries, err := fs.Volume().List()
					if err != nil {
						return err
					}
					fmt.Printf("id:    %v\nlabel: %v\nfiles: %d\nfree:  %d\n", fs.Volume().ID(), fs.Label(), len(entries), free)
					return nil
				}),
			},
			{
				Name:  "free",
				Usage: "print the free bytes",
				Action: a.withVolume(func(c *cli.Context, fs *rsfs.Fs) error {
					free, err := fs.Volume().Free()
					if err != nil {
						return err
					}
					fmt.Println(free)
					return nil
				}),
			},
			{
				Name:    "ls",
				Aliases: []string{"list"},
				Usage:   "list all files",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yaml", Usage: "print the listing as yaml"},
				},
				Action: a.withVolume(func(c *cli.Context, fs *rsfs.Fs) error {
					entries, err := fs.Volume().List()
					if err != nil {
						return err
					}
					if c.Bool("yaml") {
						return printYAML(os.Stdout, entries)
					}
					fmt.Print(rsfs.FormatListing(entries))
					return nil
				}),
			},
			{
				Name:      "create",
				Usage:     "create an empty file",
				ArgsUsage: "NAME",
				Action: a.withVolume(func(c *cli.Context, fs *rsfs.Fs) error {
					names, err := args(c, 1, 1)
					if err != nil {
						return err
					}
					return fs.Volume().Create(names[0])
				}),
			},
			{
				Name:      "rm",
				Aliases:   []string{"remove"},
				Usage:     "remove a file",
				ArgsUsage: "NAME",
				Action: a.withVolume(func(c *cli.Context, fs *rsfs.Fs) error {
					names, err := args(c, 1, 1)
					if err != nil {
						return err
					}
					return fs.Remove(names[0])
				}),
			},
			{
				Name:      "mv",
				Usage:     "rename a file",
				ArgsUsage: "OLD NEW",
				Action: a.withVolume(func(c *cli.Context, fs *rsfs.Fs) error {
					names, err := args(c, 2, 2)
					if err != nil {
						return err
					}
					return fs.Rename(names[0], names[1])
				}),
			},
			{
				Name:      "put",
				Usage:     "copy a host file onto the volume",
				ArgsUsage: "SOURCE [NAME]",
				Action: a.withVolume(func(c *cli.Context, fs *rsfs.Fs) error {
					names, err := args(c, 1, 2)
					if err != nil {
						return err
					}
					name := filepath.Base(names[0])
					if len(names) == 2 {
						name = names[1]
					}
					return put(fs, names[0], name)
				}),
			},
			{
				Name:      "get",
				Usage:     "copy a file from the volume to the host",
				ArgsUsage: "NAME [DESTINATION]",
				Action: a.withVolume(func(c *cli.Context, fs *rsfs.Fs) error {
					names, err := args(c, 1, 2)
					if err != nil {
						return err
					}
					destination := names[0]
					if len(names) == 2 {
						destination = names[1]
					}
					return get(fs, names[0], destination)
				}),
			},
			{
				Name:      "cat",
				Usage:     "print a file",
				ArgsUsage: "NAME",
				Action: a.withVolume(func(c *cli.Context, fs *rsfs.Fs) error {
					names, err := args(c, 1, 1)
					if err != nil {
						return err
					}
					return cat(fs, names[0], os.Stdout)
				}),
			},
			{
				Name:  "check",
				Usage: "verify the allocation table against the directory",
				Action: a.withVolume(func(c *cli.Context, fs *rsfs.Fs) error {
					if err := fs.Volume().Check(); err != nil {
						return err
					}
					fmt.Println("ok")
					return nil
				}),
			},
		},
	}

	if err := application.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

type listEntry struct {
	Name string `yaml:"name"`
	Size int64  `yaml:"size"`
}

func printYAML(w io.Writer, entries []rsfs.DirEntry) error {
	list := make([]listEntry, len(entries))
	for i, entry := range entries {
		list[i] = listEntry{Name: entry.Name, Size: entry.Size}
	}

	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	return encoder.Encode(list)
}
