package main

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"

	"github.com/mit-pdos/go-flatfs/disk"
	"github.com/mit-pdos/go-flatfs/fs"
	"github.com/mit-pdos/go-flatfs/util"
)

func newApp(cfg *Config) *cli.App {
	diskFlag := cli.StringFlag{
		Name:    "disk",
		Aliases: []string{"d"},
		Value:   cfg.Disk,
		Usage:   "path of the disk image",
	}
	blocksFlag := cli.Uint64Flag{
		Name:  "blocks",
		Value: cfg.Blocks,
		Usage: "size of the disk image in blocks; format sets it, other commands check it",
	}
	debugFlag := cli.Uint64Flag{
		Name:  "debug",
		Value: cfg.Debug,
		Usage: "debug log level (0 is quiet)",
	}

	return &cli.App{
		Name:  "flatfs",
		Usage: "format and inspect a single-directory file system image",
		Flags: []cli.Flag{&diskFlag, &blocksFlag, &debugFlag},
		Before: func(c *cli.Context) error {
			util.Debug = c.Uint64(debugFlag.Name)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "run the structure self-check and print the layout",
				Action: checkCmd,
			},
			{
				Name:   "format",
				Usage:  "run the self-check and initialize the disk image",
				Action: formatCmd,
			},
			{
				Name:   "ls",
				Usage:  "list files",
				Action: withFs(lsCmd),
			},
			{
				Name:   "stat",
				Usage:  "print free blocks and inodes",
				Action: withFs(statCmd),
			},
			{
				Name:      "put",
				Usage:     "copy FILE (or stdin) into NAME, replacing it",
				ArgsUsage: "NAME [FILE]",
				Action:    withFs(putCmd),
			},
			{
				Name:      "cat",
				Usage:     "print the contents of NAME",
				ArgsUsage: "NAME",
				Action:    withFs(catCmd),
			},
			{
				Name:      "rm",
				Usage:     "delete NAME",
				ArgsUsage: "NAME",
				Action:    withFs(rmCmd),
			},
			{
				Name:      "unlock",
				Usage:     "clear a stale open flag on NAME",
				ArgsUsage: "NAME",
				Action:    withFs(unlockCmd),
			},
			{
				Name:   "fsck",
				Usage:  "check the file system for inconsistencies",
				Action: withFs(fsckCmd),
			},
		},
	}
}

// openDisk opens an existing image for a mounting command. Its size is
// never changed; an explicit --blocks must match it.
func openDisk(c *cli.Context) (disk.Disk, error) {
	path := c.String("disk")
	d, err := disk.OpenFileDisk(path)
	if err != nil {
		return nil, err
	}
	if c.IsSet("blocks") && c.Uint64("blocks") != d.Size() {
		d.Close()
		return nil, fmt.Errorf("disk image `%s` has %d blocks, not %d (run format to resize)",
			path, d.Size(), c.Uint64("blocks"))
	}
	return d, nil
}

// withFs mounts the disk image around a command.
func withFs(f func(c *cli.Context, fsys *fs.FileSystem) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		d, err := openDisk(c)
		if err != nil {
			return err
		}
		defer d.Close()
		fsys, err := fs.Mount(d)
		if err != nil {
			return err
		}
		if err := f(c, fsys); err != nil {
			return fmt.Errorf("%s: %w", c.Command.Name, err)
		}
		return d.Barrier()
	}
}

func printYAML(w io.Writer, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling yaml: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func nameArg(c *cli.Context) (string, error) {
	if c.NArg() < 1 {
		return "", errors.New("missing required argument: NAME")
	}
	return c.Args().First(), nil
}

func checkCmd(c *cli.Context) error {
	fmt.Fprintln(c.App.Writer, "Checking structure alignment...")
	if err := fs.CheckStructure(); err != nil {
		fmt.Fprintln(c.App.Writer, "Check failed. Do not use filesystem.")
		return err
	}
	fmt.Fprintln(c.App.Writer, "Check succeeded.")
	return printYAML(c.App.Writer, describeLayout(c.Uint64("blocks")))
}

func formatCmd(c *cli.Context) error {
	fmt.Fprintln(c.App.Writer, "Checking structure alignment...")
	if err := fs.CheckStructure(); err != nil {
		fmt.Fprintln(c.App.Writer, "Check failed. Do not use filesystem.")
		return err
	}
	fmt.Fprintln(c.App.Writer, "Check succeeded.")
	fmt.Fprintf(c.App.Writer, "Initializing %s.\n", c.String("disk"))
	d, err := disk.CreateFileDisk(c.String("disk"), c.Uint64("blocks"))
	if err != nil {
		return err
	}
	defer d.Close()
	if _, err := fs.Mkfs(d); err != nil {
		return err
	}
	return nil
}

func lsCmd(c *cli.Context, fsys *fs.FileSystem) error {
	infos, err := fsys.List()
	if err != nil {
		return err
	}
	return printYAML(c.App.Writer, infos)
}

func statCmd(c *cli.Context, fsys *fs.FileSystem) error {
	st, err := fsys.Stat()
	if err != nil {
		return err
	}
	return printYAML(c.App.Writer, st)
}

func putCmd(c *cli.Context, fsys *fs.FileSystem) error {
	name, err := nameArg(c)
	if err != nil {
		return err
	}
	var in io.Reader = c.App.Reader
	if c.NArg() > 1 {
		file, err := os.Open(c.Args().Get(1))
		if err != nil {
			return err
		}
		defer file.Close()
		in = file
	}
	data, err := ioutil.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	if fsys.Exists(name) {
		if err := fsys.Delete(name); err != nil {
			return err
		}
	}
	f, err := fsys.Create(name)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func catCmd(c *cli.Context, fsys *fs.FileSystem) error {
	name, err := nameArg(c)
	if err != nil {
		return err
	}
	f, err := fsys.Open(name, fs.ReadOnly)
	if err != nil {
		return err
	}
	defer f.Close()
	n, err := f.Length()
	if err != nil {
		return err
	}
	data, err := f.Read(n)
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(data)
	return err
}

func rmCmd(c *cli.Context, fsys *fs.FileSystem) error {
	name, err := nameArg(c)
	if err != nil {
		return err
	}
	return fsys.Delete(name)
}

func unlockCmd(c *cli.Context, fsys *fs.FileSystem) error {
	name, err := nameArg(c)
	if err != nil {
		return err
	}
	return fsys.Unlock(name)
}

func fsckCmd(c *cli.Context, fsys *fs.FileSystem) error {
	if err := fsys.Fsck(); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "clean")
	return nil
}
