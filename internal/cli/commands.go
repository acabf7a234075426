package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"correlationcount/internal/duration"
	"correlationcount/internal/form"
	"correlationcount/internal/recordio"
	"correlationcount/internal/rule"
	"correlationcount/internal/schema"
	"correlationcount/internal/summary"
)

func (a *app) describeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Print the type descriptor and default config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.write(a.descriptor)
		},
	}
}

func (a *app) normalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <record>",
		Short: "Detect the record layout and print the canonical config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.normalize(args[0])
			if err != nil {
				return err
			}
			return a.write(result)
		},
	}
}

func (a *app) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <record>",
		Short: "Print rule validation errors; exit 1 when any",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.normalize(args[0])
			if err != nil {
				return err
			}
			errs := rule.Validate(result.Config)
			if err := a.write(errs); err != nil {
				return err
			}
			if len(errs) > 0 {
				a.logger.Debug("record invalid", "record", args[0], "errors", len(errs))
				return errInvalidRecord
			}
			return nil
		},
	}
}

func (a *app) formCommand() *cobra.Command {
	var recordPath, streamsPath, fieldsPath, errorsPath string
	cmd := &cobra.Command{
		Use:   "form",
		Short: "Print the edit form model",
		Long: `Print the edit form model for a record.

Without --fields the form reports its loading state, as it does while
the host is still fetching field types.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			props := form.Props{Definition: map[string]any{}}
			var err error
			if recordPath != "" {
				if props.Definition, err = recordio.ReadRecord(recordPath); err != nil {
					return err
				}
			}
			if streamsPath != "" {
				if props.Streams, err = recordio.ReadStreams(streamsPath); err != nil {
					return err
				}
			}
			if fieldsPath != "" {
				if props.FieldTypes, err = recordio.ReadFieldTypes(fieldsPath); err != nil {
					return err
				}
			}
			if errorsPath != "" {
				if props.Validation, err = recordio.ReadValidation(errorsPath); err != nil {
					return err
				}
			}
			return a.write(a.descriptor.Form(props))
		},
	}
	cmd.Flags().StringVar(&recordPath, "record", "", "event definition record file")
	cmd.Flags().StringVar(&streamsPath, "streams", "", "stream list file")
	cmd.Flags().StringVar(&fieldsPath, "fields", "", "field type list file")
	cmd.Flags().StringVar(&errorsPath, "errors", "", "validation error map file")
	return cmd
}

func (a *app) summaryCommand() *cobra.Command {
	var templatePath string
	cmd := &cobra.Command{
		Use:   "summary <record>",
		Short: "Render the read-only summary",
		Long: `Render the read-only summary of a record.

Text is the default. With an explicit --output the rows are encoded instead.
A text/template from --template or summary.template in config replaces the
default layout and may use fmtDuration, join, and json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := recordio.ReadRecord(args[0])
			if err != nil {
				return err
			}
			body := a.cfg.Summary.Template
			if templatePath != "" {
				raw, err := os.ReadFile(templatePath)
				if err != nil {
					return fmt.Errorf("read summary template %q: %w", templatePath, err)
				}
				body = string(raw)
			}
			if strings.TrimSpace(body) != "" {
				tmpl, err := summary.ParseTemplate("summary", body, a.descriptor.Ladder)
				if err != nil {
					return fmt.Errorf("parse summary template: %w", err)
				}
				return summary.RenderTemplate(a.stdout, tmpl, def, a.descriptor.Ladder)
			}

			rows, err := a.descriptor.Summary(def)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output") {
				return a.write(rows)
			}
			return summary.Render(a.stdout, rows)
		},
	}
	cmd.Flags().StringVar(&templatePath, "template", "", "text/template file for the summary")
	return cmd
}

func (a *app) editCommand() *cobra.Command {
	var (
		sets      []string
		durations []string
		groupBy   string
	)
	cmd := &cobra.Command{
		Use:   "edit <record>",
		Short: "Apply edits through a change session and print the result",
		Long: `Apply edits to a record the way the form does and print the final record.

Examples:
  correlationcount edit rule.json --set threshold=5 --set stream=abc
  correlationcount edit rule.yaml --duration search_within_ms=5:MINUTES --group-by user,host`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := recordio.ReadRecord(args[0])
			if err != nil {
				return err
			}
			var session *form.Session
			session, err = a.descriptor.NewSession(def, func(key string, value any) {
				a.logger.Info("config changed", "key", key, "revision", session.Revision())
			})
			if err != nil {
				return err
			}

			for _, item := range sets {
				key, value, ok := strings.Cut(item, "=")
				if !ok || key == "" {
					return fmt.Errorf("--set %q: expected key=value", item)
				}
				session.SetText(key, value)
			}
			for _, item := range durations {
				key, magnitude, unit, err := parseDurationEdit(item)
				if err != nil {
					return err
				}
				if _, err := session.SetDuration(key, magnitude, unit); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("group-by") {
				session.SetGroupingFields(groupBy)
			}

			a.logger.Debug("edits applied", "revision", session.Revision())
			return a.write(session.Definition())
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "set a config field as typed text (key=value, repeatable)")
	cmd.Flags().StringArrayVar(&durations, "duration", nil, "set a time field (key=MAGNITUDE:UNIT, repeatable)")
	cmd.Flags().StringVar(&groupBy, "group-by", "", "comma-separated grouping fields; empty clears")
	return cmd
}

// parseDurationEdit splits "search_within_ms=5:MINUTES".
func parseDurationEdit(item string) (string, int64, duration.Unit, error) {
	key, pair, ok := strings.Cut(item, "=")
	if !ok || key == "" {
		return "", 0, "", fmt.Errorf("--duration %q: expected key=MAGNITUDE:UNIT", item)
	}
	rawMagnitude, rawUnit, ok := strings.Cut(pair, ":")
	if !ok {
		return "", 0, "", fmt.Errorf("--duration %q: expected key=MAGNITUDE:UNIT", item)
	}
	magnitude, err := duration.ParseMagnitude(rawMagnitude)
	if err != nil {
		return "", 0, "", fmt.Errorf("--duration %q: %w", item, err)
	}
	unit, err := duration.ParseUnit(rawUnit)
	if err != nil {
		return "", 0, "", fmt.Errorf("--duration %q: %w", item, err)
	}
	return key, magnitude, unit, nil
}

func (a *app) durationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duration",
		Short: "Convert between milliseconds and readable pairs",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "to-pair <ms>",
			Short: "Pick the largest unit that divides the value exactly",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ms, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
				if err != nil {
					return fmt.Errorf("parse milliseconds %q: %w", args[0], err)
				}
				return a.write(duration.ToPair(ms, a.descriptor.Ladder))
			},
		},
		&cobra.Command{
			Use:   "to-ms <magnitude> <unit>",
			Short: "Convert a pair to milliseconds; magnitudes below 1 become 1",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				magnitude, err := duration.ParseMagnitude(args[0])
				if err != nil {
					return err
				}
				unit, err := duration.ParseUnit(args[1])
				if err != nil {
					return err
				}
				ms, err := duration.ToMilliseconds(magnitude, unit, a.descriptor.Ladder)
				if err != nil {
					return err
				}
				return a.write(map[string]int64{"ms": ms})
			},
		},
	)
	return cmd
}

// normalize reads a record and logs its detected layout.
func (a *app) normalize(path string) (schema.Result, error) {
	raw, err := recordio.ReadRecord(path)
	if err != nil {
		return schema.Result{}, err
	}
	result, err := schema.Normalize(raw)
	if err != nil {
		return schema.Result{}, err
	}
	a.logger.Debug("schema detected", "record", path, "version", result.Version)
	return result, nil
}
