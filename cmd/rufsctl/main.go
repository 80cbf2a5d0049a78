// Command rufsctl drives a rufs image directly, without a kernel FUSE
// mount: it is what would sit behind the host adapter in a real
// deployment.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"

	"github.com/dargueta/rufs"
	"github.com/dargueta/rufs/internal/geometry"
)

func main() {
	app := &cli.App{
		Usage: "Inspect and manipulate a rufs disk image directly",
		Commands: []*cli.Command{
			formatCommand,
			lsCommand,
			mkdirCommand,
			catCommand,
			writeCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("rufsctl: %s", err.Error())
	}
}

var formatCommand = &cli.Command{
	Name:      "format",
	Usage:     "Create a fresh disk image",
	ArgsUsage: "DISKFILE",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "geometry", Usage: "name of a predefined geometry to use"},
		&cli.UintFlag{Name: "block-size", Value: rufs.BlockSize},
		&cli.UintFlag{Name: "inodes", Value: rufs.DefaultIMax},
		&cli.UintFlag{Name: "blocks", Value: rufs.DefaultDMax},
	},
	Action: runFormat,
}

func runFormat(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("missing DISKFILE argument", 1)
	}

	blockSize := c.Uint("block-size")
	iMax := c.Uint("inodes")
	dMax := c.Uint("blocks")

	if slug := c.String("geometry"); slug != "" {
		g, err := geometry.Lookup(slug)
		if err != nil {
			return err
		}
		blockSize = uint(g.BlockSize)
		iMax = uint(g.IMax)
		dMax = uint(g.DMax)
	}

	if err := validateFormatParams(blockSize, iMax, dMax); err != nil {
		return err
	}

	driver := rufs.NewDriver(path)
	return driver.Format(uint32(iMax), uint32(dMax))
}

// validateFormatParams checks every layout parameter together and reports
// every violation at once instead of failing on the first one.
func validateFormatParams(blockSize, iMax, dMax uint) error {
	var result *multierror.Error

	if blockSize != rufs.BlockSize {
		result = multierror.Append(result, fmt.Errorf(
			"block size %d is not supported; this build is compiled for %d-byte blocks",
			blockSize, rufs.BlockSize))
	}
	if iMax == 0 {
		result = multierror.Append(result, fmt.Errorf("inode count must be nonzero"))
	}
	if dMax == 0 {
		result = multierror.Append(result, fmt.Errorf("data block count must be nonzero"))
	}

	return result.ErrorOrNil()
}

var lsCommand = &cli.Command{
	Name:      "ls",
	Usage:     "List the entries in a directory",
	ArgsUsage: "DISKFILE PATH",
	Action: func(c *cli.Context) error {
		driver, path, err := openArgs(c)
		if err != nil {
			return err
		}
		defer driver.Unmount()

		names, err := driver.ReadDirectory(path)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var mkdirCommand = &cli.Command{
	Name:      "mkdir",
	Usage:     "Create a directory",
	ArgsUsage: "DISKFILE PATH",
	Flags: []cli.Flag{
		&cli.UintFlag{Name: "mode", Value: rufs.ModeDirDefault},
	},
	Action: func(c *cli.Context) error {
		driver, path, err := openArgs(c)
		if err != nil {
			return err
		}
		defer driver.Unmount()

		return driver.MakeDirectory(path, uint16(c.Uint("mode")))
	},
}

var catCommand = &cli.Command{
	Name:      "cat",
	Usage:     "Print a file's contents",
	ArgsUsage: "DISKFILE PATH",
	Action: func(c *cli.Context) error {
		driver, path, err := openArgs(c)
		if err != nil {
			return err
		}
		defer driver.Unmount()

		attrs, err := driver.GetAttributes(path)
		if err != nil {
			return err
		}

		data, err := driver.ReadFile(path, int(attrs.Size), 0)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var writeCommand = &cli.Command{
	Name:      "write",
	Usage:     "Create a file and write stdin to it",
	ArgsUsage: "DISKFILE PATH",
	Flags: []cli.Flag{
		&cli.UintFlag{Name: "mode", Value: rufs.ModeFileDefault},
	},
	Action: func(c *cli.Context) error {
		driver, path, err := openArgs(c)
		if err != nil {
			return err
		}
		defer driver.Unmount()

		if _, err := driver.CreateFile(path, uint16(c.Uint("mode"))); err != nil {
			return err
		}

		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			return err
		}

		_, err = driver.WriteFile(path, data, len(data), 0)
		return err
	},
}

// openArgs parses DISKFILE and PATH from the command arguments and mounts
// the image.
func openArgs(c *cli.Context) (*rufs.Driver, string, error) {
	diskfile := c.Args().Get(0)
	path := c.Args().Get(1)
	if diskfile == "" || path == "" {
		return nil, "", cli.Exit("usage: DISKFILE PATH", 1)
	}

	driver := rufs.NewDriver(diskfile)
	if err := driver.Mount(); err != nil {
		return nil, "", err
	}
	return driver, path, nil
}
