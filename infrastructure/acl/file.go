package acl

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	appacl "shadowrelay/application/acl"
)

// LoadFile reads an ACL rule file (spec §6 "--acl path") into white/black
// pattern slices. Lines are grouped by a "[white]" or "[black]" section
// header; blank lines and lines starting with '#' are ignored. No ACL
// section header in the original shadowsocks-libev source survives in
// the retrieved reference material for this spec, so this format is this
// module's own, in the plain line-oriented style the teacher's own
// settings package uses for host lists.
func LoadFile(path string) (whitePatterns, blackPatterns []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open ACL file %s: %w", path, err)
	}
	defer f.Close()

	section := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.Trim(line, "[]"))
			continue
		}
		switch section {
		case "white", "whitelist", "white_list":
			whitePatterns = append(whitePatterns, line)
		case "black", "blacklist", "black_list":
			blackPatterns = append(blackPatterns, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read ACL file %s: %w", path, err)
	}
	return whitePatterns, blackPatterns, nil
}

// NewFromFile loads path and builds an ACL in the given mode.
func NewFromFile(mode appacl.Mode, path string) (appacl.ACL, error) {
	if path == "" {
		return New(appacl.ModeDisabled, nil, nil), nil
	}
	white, black, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return New(mode, white, black), nil
}
