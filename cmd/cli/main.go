// Command cli runs one transformation against the remote service from
// the terminal: submit, poll, download and save, printing each state
// transition as it happens.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"magic-mirror/config"
	"magic-mirror/internal/types"
	"magic-mirror/internal/workflow"
	"magic-mirror/log"
	"magic-mirror/pkg/genapi"
)

type imageFlags map[string]string

func (f imageFlags) String() string {
	parts := make([]string, 0, len(f))
	for field, path := range f {
		parts = append(parts, field+"="+path)
	}
	return strings.Join(parts, ",")
}

func (f imageFlags) Set(value string) error {
	field, path, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("expected field=path, got %q", value)
	}
	f[field] = path
	return nil
}

func main() {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	showVersion := flags.Bool("version", false, "print version information")
	showDiagnose := flags.Bool("diagnose", false, "print runtime diagnostics")
	feature := flags.String("feature", "", "transformation to run (try-on, hair-style, age-change, beard-style, figurine, ghibli-art)")
	prompt := flags.String("prompt", "", "style description for prompt-driven features")
	output := flags.String("out", "", "output file (default <feature>.<format>)")
	images := imageFlags{}
	flags.Var(images, "image", "image part as field=path, repeatable (e.g. -image person_image=me.jpg)")

	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if handled, exitCode := handleInfoFlags(*showVersion, *showDiagnose); handled {
		os.Exit(exitCode)
	}

	log.InitLogger()
	defer log.GetLogger().Sync()

	if _, err := config.LoadOrCreateConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.CheckConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	if err := run(types.Feature(*feature), images, *prompt, *output); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(feature types.Feature, images imageFlags, prompt, output string) error {
	if !feature.Valid() {
		return fmt.Errorf("unknown or missing -feature %q", feature)
	}

	data := make(map[string][]byte, len(images))
	for field, path := range images {
		bytes, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", field, err)
		}
		data[field] = bytes
	}

	backend := genapi.NewClient(
		config.Conf.Api.BaseUrl,
		config.Conf.Api.ApiKey,
		config.Conf.App.Proxy,
	).WithTimeout(time.Duration(config.Conf.Api.Timeout) * time.Second)

	controller := workflow.NewController(backend, workflow.Options{
		PollInterval: time.Duration(config.Conf.Workflow.PollInterval) * time.Second,
		PollTimeout:  time.Duration(config.Conf.Workflow.PollTimeout) * time.Second,
		MaxAttempts:  config.Conf.Workflow.MaxAttempts,
	})

	inst, err := controller.Start(context.Background(), workflow.Request{
		Feature: feature,
		Images:  data,
		Prompt:  prompt,
	})
	if err != nil {
		return err
	}

	for ev := range inst.Events() {
		if ev.Message != "" {
			fmt.Printf("%s: %s\n", ev.State, ev.Message)
		} else {
			fmt.Println(ev.State)
		}
	}

	state, message := controller.State()
	if state != workflow.StateSucceeded {
		return fmt.Errorf("transformation failed: %s", message)
	}

	result := controller.Result()
	if output == "" {
		output = fmt.Sprintf("%s.%s", feature, result.Format)
	}
	if err := os.WriteFile(output, result.Data, 0o644); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	fmt.Printf("saved %s\n", output)
	return nil
}
