package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/itchan-dev/boardkeeper/shared/domain"
	"github.com/itchan-dev/boardkeeper/shared/logger"
)

// Site layout on disk:
//
//	<root>/config.txt                  boards: α, test
//	<root>/boards/<name>/config.txt    description, active_count, archive_count
const (
	SiteConfigFile = "config.txt"
	BoardsDir      = "boards"

	DefaultBoardDescription = "This is the default board description."
	DefaultActiveCount      = 16
	DefaultArchiveCount     = 8
)

const defaultSiteConfig = "boards: α, test\r\n"

type SiteConfig struct {
	Boards []domain.BoardName `validate:"required,min=1,dive,required"`
}

type BoardFile struct {
	Description  string
	ActiveCount  int `validate:"gt=0"`
	ArchiveCount int `validate:"gt=0"`
}

func defaultBoardFile() string {
	return fmt.Sprintf("description: %s\r\nactive_count: %d\r\narchive_count: %d\r\n",
		DefaultBoardDescription, DefaultActiveCount, DefaultArchiveCount)
}

// Bootstrap makes sure the site layout under root exists, generating default
// config files where they are missing, and returns the board configs in the
// order the site config lists them.
func Bootstrap(root string) ([]domain.BoardConfig, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create site root %s: %w", root, err)
	}
	sitePath := filepath.Join(root, SiteConfigFile)
	created, err := ensureFile(sitePath, defaultSiteConfig)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Log.Info("generated default site config", "component", "config", "path", sitePath)
	}

	siteValues, err := readKeyValues(sitePath)
	if err != nil {
		return nil, err
	}
	site := SiteConfig{Boards: splitBoardNames(siteValues["boards"])}
	if err := validate.Struct(site); err != nil {
		return nil, fmt.Errorf("invalid site config %s: %w", sitePath, err)
	}

	boardsRoot := filepath.Join(root, BoardsDir)
	if err := os.MkdirAll(boardsRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create boards dir: %w", err)
	}

	seen := make(map[domain.BoardName]struct{}, len(site.Boards))
	configs := make([]domain.BoardConfig, 0, len(site.Boards))
	for _, name := range site.Boards {
		if err := checkBoardName(name); err != nil {
			return nil, err
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("board %q listed twice in %s", name, sitePath)
		}
		seen[name] = struct{}{}

		cfg, err := loadBoard(filepath.Join(boardsRoot, name), name)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func loadBoard(dir string, name domain.BoardName) (domain.BoardConfig, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return domain.BoardConfig{}, fmt.Errorf("failed to create board dir %s: %w", dir, err)
	}
	configPath := filepath.Join(dir, SiteConfigFile)
	created, err := ensureFile(configPath, defaultBoardFile())
	if err != nil {
		return domain.BoardConfig{}, err
	}
	if created {
		logger.Log.Info("generated default board config", "component", "config", "board", name)
	}

	file := BoardFile{Description: DefaultBoardDescription, ActiveCount: DefaultActiveCount, ArchiveCount: DefaultArchiveCount}
	values, err := readKeyValues(configPath)
	if err != nil {
		return domain.BoardConfig{}, err
	}
	if description, ok := values["description"]; ok {
		file.Description = description
	}
	for key, dst := range map[string]*int{"active_count": &file.ActiveCount, "archive_count": &file.ArchiveCount} {
		raw, ok := values[key]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return domain.BoardConfig{}, fmt.Errorf("invalid %s in %s: %w", key, configPath, err)
		}
		*dst = n
	}
	if err := validate.Struct(file); err != nil {
		return domain.BoardConfig{}, fmt.Errorf("invalid config for board %q: %w", name, err)
	}
	return domain.BoardConfig{
		Name:            name,
		Description:     file.Description,
		ActiveCapacity:  file.ActiveCount,
		ArchiveCapacity: file.ArchiveCount,
	}, nil
}

// readKeyValues parses "key: value" lines. Only the first ": " separates, so
// values are taken verbatim and may contain anything else.
func readKeyValues(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read config file %s: %w", path, err)
	}
	values := make(map[string]string)
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, fmt.Errorf("%s:%d: expected \"key: value\", got %q", path, i+1, line)
		}
		values[strings.TrimSpace(key)] = value
	}
	return values, nil
}

func splitBoardNames(joined string) []domain.BoardName {
	var out []domain.BoardName
	for _, name := range strings.Split(joined, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func checkBoardName(name domain.BoardName) error {
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("board name %q can't be used as a directory", name)
	}
	return nil
}

func ensureFile(path, content string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := writeSynced(path, []byte(content)); err != nil {
		return false, fmt.Errorf("failed to write default config %s: %w", path, err)
	}
	return true, nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
