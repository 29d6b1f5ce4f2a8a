package logging

import (
	"fmt"
	"io"
	"os"
)

// ConfigureFromSettings builds a Logger from string-based settings, the
// shape naturally produced by a JSON config file or CBRIDGE_LOG_* env
// vars. output is one of "console", "file", "both"; filename is required
// for "file"/"both".
func ConfigureFromSettings(level, format, output, filename string) (*Logger, error) {
	logLevel, err := ParseLogLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var logFormat LogFormat
	switch format {
	case "json":
		logFormat = JSONFormat
	case "text", "":
		logFormat = TextFormat
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	var writer io.Writer
	switch output {
	case "console", "":
		writer = os.Stdout
	case "file":
		if filename == "" {
			return nil, fmt.Errorf("log file path required when output is 'file'")
		}
		if writer, err = CreateFileOutput(filename); err != nil {
			return nil, fmt.Errorf("failed to create file output: %w", err)
		}
	case "both":
		if filename == "" {
			return nil, fmt.Errorf("log file path required when output is 'both'")
		}
		if writer, err = CreateCombinedOutput(filename); err != nil {
			return nil, fmt.Errorf("failed to create combined output: %w", err)
		}
	default:
		return nil, fmt.Errorf("invalid log output: %s", output)
	}

	return NewLogger(&Config{
		Level:            logLevel,
		Format:           logFormat,
		Output:           writer,
		EnableSanitizing: true,
	}), nil
}

// InitFromConfig configures and installs the process-wide global logger
// from string-based settings.
func InitFromConfig(level, format, output, filename string) error {
	logger, err := ConfigureFromSettings(level, format, output, filename)
	if err != nil {
		return err
	}
	InitGlobalLogger(&Config{
		Level:            logger.level,
		Format:           logger.format,
		Output:           logger.output,
		Component:        logger.component,
		EnableSanitizing: logger.enableSanitizing,
	})
	return nil
}
