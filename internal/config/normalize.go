package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeMerge(); err != nil {
		return err
	}
	c.normalizeGuesser()
	c.normalizeLogging()
	return c.normalizeMetrics()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.IndexDir) == "" {
		c.Paths.IndexDir = defaultIndexDir
	}
	if c.Paths.IndexDir, err = expandPath(c.Paths.IndexDir); err != nil {
		return fmt.Errorf("paths.index_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMerge() error {
	c.Merge.NamespacePrefixes = trimList(c.Merge.NamespacePrefixes, false)
	c.Merge.CrossLinkTags = trimList(c.Merge.CrossLinkTags, true)
	c.Merge.UplinkTags = trimList(c.Merge.UplinkTags, true)
	c.Merge.StandardNumberSubfields = trimList(c.Merge.StandardNumberSubfields, false)
	for i, spec := range c.Merge.StandardNumberSubfields {
		if len(spec) > 3 {
			c.Merge.StandardNumberSubfields[i] = strings.ToUpper(spec[:3]) + spec[3:]
		}
	}

	var err error
	if c.Merge.DebugMapsDir != "" {
		if c.Merge.DebugMapsDir, err = expandPath(c.Merge.DebugMapsDir); err != nil {
			return fmt.Errorf("merge.debug_maps_dir: %w", err)
		}
	}
	c.Merge.MissingPartnersFile = strings.TrimSpace(c.Merge.MissingPartnersFile)
	if c.Merge.MissingPartnersFile == "" {
		c.Merge.MissingPartnersFile = defaultMissingPartnersFile
	}
	return nil
}

func (c *Config) normalizeGuesser() {
	c.Guesser.StoreFile = strings.TrimSpace(c.Guesser.StoreFile)
	if c.Guesser.StoreFile == "" {
		c.Guesser.StoreFile = defaultGuesserStoreFile
	}
	if c.Guesser.MaxControlNumberLength == 0 {
		c.Guesser.MaxControlNumberLength = defaultMaxControlNumberLength
	}
	if c.Guesser.BatchSize == 0 {
		c.Guesser.BatchSize = defaultGuesserBatchSize
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeMetrics() error {
	var err error
	if c.Metrics.TextfilePath, err = expandPath(strings.TrimSpace(c.Metrics.TextfilePath)); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}

// trimList drops blank entries and duplicates, optionally upper-casing.
func trimList(values []string, upper bool) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := strings.TrimSpace(value)
		if upper {
			normalized = strings.ToUpper(normalized)
		}
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
