package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"magic-mirror/internal/appdirs"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func handleInfoFlags(showVersion, showDiagnose bool) (bool, int) {
	if !showVersion && !showDiagnose {
		return false, 0
	}

	if showVersion {
		printVersion()
	}

	if showDiagnose {
		if showVersion {
			fmt.Println()
		}
		printDiagnose()
	}

	return true, 0
}

func printVersion() {
	fmt.Printf("version: %s\ncommit: %s\ndate: %s\n", version, commit, date)
}

func printDiagnose() {
	fmt.Printf("runtime: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("version: %s\n", version)
	fmt.Printf("commit: %s\n", commit)
	fmt.Printf("date: %s\n", date)

	if wd, err := os.Getwd(); err == nil {
		fmt.Printf("working_dir: %s\n", wd)
	} else {
		fmt.Printf("working_dir: <error: %v>\n", err)
	}

	if exePath, err := os.Executable(); err == nil {
		fmt.Printf("executable: %s\n", exePath)
	} else {
		fmt.Printf("executable: <error: %v>\n", err)
	}

	dirs, err := appdirs.Resolve()
	if err != nil {
		fmt.Printf("paths: <error: %v>\n", err)
		return
	}
	fmt.Printf("portable: %v\n", dirs.Portable)
	printPath("config", dirs.ConfigFile)
	printPath("effective_log_dir", dirs.LogDir)
	printPath("gallery", appdirs.GalleryRootFor(dirs))
	printPath("cache", dirs.CacheDir)
	printPath("database", appdirs.DBPathFor(dirs))
}

func printPath(name, value string) {
	absPath, err := filepath.Abs(value)
	if err != nil {
		fmt.Printf("path.%s: %s (abs_error=%v)\n", name, value, err)
		return
	}

	if _, err = os.Stat(absPath); err == nil {
		fmt.Printf("path.%s: %s (exists)\n", name, absPath)
		return
	}
	if os.IsNotExist(err) {
		fmt.Printf("path.%s: %s (missing)\n", name, absPath)
		return
	}

	fmt.Printf("path.%s: %s (error=%v)\n", name, absPath, err)
}
