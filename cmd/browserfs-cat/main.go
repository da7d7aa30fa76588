// BrowserFS command-line access: stat, list, and print remote files
// through the adapter without mounting anything.
//
// Usage:
//
//	browserfs-cat -server URL ls /some/dir
//	browserfs-cat -server URL stat /a.txt
//	browserfs-cat -server URL cat /a.txt
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/thiagodp/BrowserFS/pkg/httpfs"
	"github.com/thiagodp/BrowserFS/pkg/index"
	"github.com/thiagodp/BrowserFS/pkg/logging"
	"github.com/thiagodp/BrowserFS/pkg/transport"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "Server base URL")
	listing := flag.String("listing", "index.json", "Listing document path")
	prefix := flag.String("prefix", "", "Remote key prefix for content")
	token := flag.String("token", "", "Bearer token (or BROWSERFS_TOKEN)")
	timeout := flag.Duration("timeout", 30*time.Second, "Fetch timeout")
	logLevel := flag.String("log-level", "error", "Log level")

	flag.Parse()

	if err := logging.Init(logging.Config{Level: *logLevel, Format: "console"}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: init logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] {ls|stat|cat} PATH\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	command, path := args[0], args[1]

	if *token == "" {
		*token = os.Getenv("BROWSERFS_TOKEN")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	tr := transport.NewHTTP(transport.HTTPConfig{
		BaseURL:     *serverURL,
		ListingPath: *listing,
		Timeout:     *timeout,
		AuthToken:   *token,
	})

	root, err := tr.FetchListing(ctx)
	if err != nil {
		fatal("fetch listing: %v", err)
	}

	fsys, err := httpfs.New(httpfs.Config{
		Index:     index.Build(root),
		Transport: tr,
		Prefix:    *prefix,
	})
	if err != nil {
		fatal("create filesystem: %v", err)
	}

	switch command {
	case "ls":
		names, err := fsys.Readdir(path)
		if err != nil {
			fatal("ls %s: %v", path, err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
	case "stat":
		info, err := fsys.Stat(ctx, path)
		if err != nil {
			fatal("stat %s: %v", path, err)
		}
		kind := "file"
		if info.IsDir() {
			kind = "dir"
		}
		fmt.Printf("%s\t%s\t%d\t%s\n", kind, info.Name(), info.Size(),
			info.ModTime().Format(time.RFC3339))
	case "cat":
		data, err := fsys.ReadFile(ctx, path, httpfs.DefaultFlags)
		if err != nil {
			fatal("cat %s: %v", path, err)
		}
		os.Stdout.Write(data)
	default:
		fatal("unknown command %q (want ls, stat, or cat)", command)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
