package swupd

import (
	"howett.net/plist"
)

// Restart actions an update can demand.
const (
	RestartActionRequired    = "RequireRestart"
	RestartActionRecommended = "RecommendRestart"
)

// Result and report plist keys.
const (
	phaseResultsKey   = "phaseResultsArray"
	pendingUpdatesKey = "AppleUpdates"
)

// UpdateInfo describes one applicable update reported by the native
// updater.
type UpdateInfo struct {
	ProductKey    string // may be empty on very old updates
	Name          string // the updater's ignore key, e.g. "iTunesX"
	DisplayName   string
	Version       string
	Description   string
	SizeKB        int64
	RestartAction string
}

// RestartNeeded reports whether any update demands or recommends a
// restart.
func RestartNeeded(updates []UpdateInfo) bool {
	for _, u := range updates {
		if u.RestartAction == RestartActionRequired || u.RestartAction == RestartActionRecommended {
			return true
		}
	}
	return false
}

// ProductKeys returns the non-empty product keys of updates, in order.
func ProductKeys(updates []UpdateInfo) []string {
	keys := make([]string, 0, len(updates))
	for _, u := range updates {
		if u.ProductKey != "" {
			keys = append(keys, u.ProductKey)
		}
	}
	return keys
}

// parsePhaseResults extracts updates from the structured result plist the
// native updater writes in list mode.
func parsePhaseResults(data []byte) ([]UpdateInfo, error) {
	var doc map[string]interface{}
	if _, err := plist.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	raw, _ := doc[phaseResultsKey].([]interface{})
	updates := make([]UpdateInfo, 0, len(raw))
	for _, v := range raw {
		d, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		info := UpdateInfo{
			ProductKey:  stringAt(d, "productKey"),
			Name:        stringAt(d, "ignoreKey"),
			DisplayName: stringAt(d, "name"),
			Version:     stringAt(d, "version"),
			Description: stringAt(d, "description"),
			SizeKB:      intAt(d, "sizeInKB"),
		}
		if stringAt(d, "restartRequired") == "YES" {
			info.RestartAction = RestartActionRequired
		}
		updates = append(updates, info)
	}
	return updates, nil
}

// MarshalPendingUpdates encodes updates in the pending-updates report
// format.
func MarshalPendingUpdates(updates []UpdateInfo) ([]byte, error) {
	items := make([]interface{}, 0, len(updates))
	for _, u := range updates {
		d := map[string]interface{}{
			"name":               u.Name,
			"display_name":       u.DisplayName,
			"version_to_install": u.Version,
			"description":        u.Description,
			"installed_size":     u.SizeKB,
		}
		if u.ProductKey != "" {
			d["productKey"] = u.ProductKey
		}
		if u.RestartAction != "" {
			d["RestartAction"] = u.RestartAction
		}
		items = append(items, d)
	}
	doc := map[string]interface{}{pendingUpdatesKey: items}
	return plist.MarshalIndent(doc, plist.XMLFormat, "\t")
}

// UnmarshalPendingUpdates decodes a pending-updates report.
func UnmarshalPendingUpdates(data []byte) ([]UpdateInfo, error) {
	var doc map[string]interface{}
	if _, err := plist.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	raw, _ := doc[pendingUpdatesKey].([]interface{})
	updates := make([]UpdateInfo, 0, len(raw))
	for _, v := range raw {
		d, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		updates = append(updates, UpdateInfo{
			ProductKey:    stringAt(d, "productKey"),
			Name:          stringAt(d, "name"),
			DisplayName:   stringAt(d, "display_name"),
			Version:       stringAt(d, "version_to_install"),
			Description:   stringAt(d, "description"),
			SizeKB:        intAt(d, "installed_size"),
			RestartAction: stringAt(d, "RestartAction"),
		})
	}
	return updates, nil
}

func stringAt(d map[string]interface{}, key string) string {
	s, _ := d[key].(string)
	return s
}

// intAt tolerates the numeric types a plist decoder can produce.
func intAt(d map[string]interface{}, key string) int64 {
	switch n := d[key].(type) {
	case uint64:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}
