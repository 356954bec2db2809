package relay

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var splitFilePattern = regexp.MustCompile(`^(.+)_part(\d+)of(\d+)\.json$`)

type splitPart struct {
	content    string
	totalParts int
}

// Reassemble joins <base>_part<N>of<M>.json files back into <base>.json by
// concatenating their shops arrays in part order. The other top-level fields
// come from the first readable part, without chunk_info. Files that do not
// look like parts pass through unchanged.
func Reassemble(files map[string]string, log *zap.Logger) map[string]string {
	if log == nil {
		log = zap.NewNop()
	}
	out := make(map[string]string, len(files))
	split := map[string]map[string]splitPart{}

	for name, content := range files {
		if !strings.Contains(name, "_part") || !strings.Contains(name, "of") {
			out[name] = content
			continue
		}
		m := splitFilePattern.FindStringSubmatch(name)
		if m == nil {
			out[name] = content
			continue
		}
		target := m[1] + ".json"
		total, _ := strconv.Atoi(m[3])
		if split[target] == nil {
			split[target] = map[string]splitPart{}
		}
		split[target][m[2]] = splitPart{content: content, totalParts: total}
	}

	names := make([]string, 0, len(split))
	for name := range split {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, target := range names {
		parts := split[target]
		total := len(parts)
		if first, ok := parts["1"]; ok && first.totalParts > 0 {
			total = first.totalParts
		}

		var base map[string]json.RawMessage
		shops := []json.RawMessage{}
		for i := 1; i <= total; i++ {
			part, ok := parts[strconv.Itoa(i)]
			if !ok {
				log.Warn("split file part missing", zap.String("file", target), zap.Int("part", i))
				continue
			}
			var data map[string]json.RawMessage
			if err := json.Unmarshal([]byte(part.content), &data); err != nil {
				log.Warn("split file part unreadable", zap.String("file", target), zap.Int("part", i), zap.Error(err))
				continue
			}
			if base == nil {
				base = make(map[string]json.RawMessage, len(data))
				for k, v := range data {
					if k == "shops" || k == "chunk_info" {
						continue
					}
					base[k] = v
				}
			}
			var partShops []json.RawMessage
			if err := json.Unmarshal(data["shops"], &partShops); err == nil {
				shops = append(shops, partShops...)
			}
		}

		if base == nil || len(shops) == 0 {
			log.Warn("split file not reassembled", zap.String("file", target))
			continue
		}
		joined, err := json.Marshal(shops)
		if err != nil {
			log.Warn("split file not reassembled", zap.String("file", target), zap.Error(err))
			continue
		}
		base["shops"] = joined
		blob, err := json.Marshal(base)
		if err != nil {
			log.Warn("split file not reassembled", zap.String("file", target), zap.Error(err))
			continue
		}
		out[target] = string(blob)
	}
	return out
}
