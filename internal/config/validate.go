package config

import (
	"errors"
	"fmt"
	"strings"
)

const tagLength = 3

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMerge(); err != nil {
		return err
	}
	if err := c.validateGuesser(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.IndexDir) == "" {
		return errors.New("paths.index_dir must be set")
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	return nil
}

func (c *Config) validateMerge() error {
	if len(c.Merge.NamespacePrefixes) == 0 {
		return errors.New("merge.namespace_prefixes must list at least one prefix")
	}
	if len(c.Merge.CrossLinkTags) == 0 {
		return errors.New("merge.cross_link_tags must list at least one tag")
	}
	if err := validateTags("merge.cross_link_tags", c.Merge.CrossLinkTags); err != nil {
		return err
	}
	if err := validateTags("merge.uplink_tags", c.Merge.UplinkTags); err != nil {
		return err
	}
	for _, spec := range c.Merge.StandardNumberSubfields {
		if len(spec) != tagLength+1 {
			return fmt.Errorf("merge.standard_number_subfields: %q must be a tag followed by one subfield code", spec)
		}
		if err := validateTags("merge.standard_number_subfields", []string{spec[:tagLength]}); err != nil {
			return err
		}
	}
	if strings.ContainsAny(c.Merge.MissingPartnersFile, "/\\") {
		return fmt.Errorf("merge.missing_partners_file %q must be a bare file name", c.Merge.MissingPartnersFile)
	}
	return nil
}

func validateTags(key string, tags []string) error {
	for _, tag := range tags {
		if len(tag) != tagLength {
			return fmt.Errorf("%s: tag %q must be exactly %d characters", key, tag, tagLength)
		}
		for i := 0; i < len(tag); i++ {
			ch := tag[i]
			if (ch < '0' || ch > '9') && (ch < 'A' || ch > 'Z') {
				return fmt.Errorf("%s: tag %q must be alphanumeric", key, tag)
			}
		}
	}
	return nil
}

func (c *Config) validateGuesser() error {
	if c.Guesser.MaxControlNumberLength <= 0 {
		return errors.New("guesser.max_control_number_length must be positive")
	}
	if c.Guesser.BatchSize <= 0 {
		return errors.New("guesser.batch_size must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
