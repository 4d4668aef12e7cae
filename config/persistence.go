package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ghodss/yaml"

	"github.com/safing/portsync/log"
	"github.com/safing/portsync/utils"
)

var (
	configFilePath     string
	configFilePathLock sync.Mutex
)

// SetConfigFile sets the file that SetConfigOption persists to. An empty path
// disables persistence.
func SetConfigFile(path string) {
	configFilePathLock.Lock()
	defer configFilePathLock.Unlock()

	configFilePath = path
}

func getConfigFile() string {
	configFilePathLock.Lock()
	defer configFilePathLock.Unlock()

	return configFilePath
}

// LoadConfig reads a JSON or YAML config file, applies it as the user config
// and remembers it as the config file.
func LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var newValues map[string]interface{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		newValues, err = JSONToMap(data)
	case ".yaml", ".yml":
		newValues, err = YAMLToMap(data)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	SetConfigFile(path)
	log.Infof("config: loaded %s", path)
	return SetConfig(newValues)
}

// SaveConfig writes the active user values to the config file.
func SaveConfig() error {
	return saveConfig()
}

func saveConfig() error {
	path := getConfigFile()
	if path == "" {
		return nil
	}

	// extract values
	activeValues := make(map[string]interface{})
	optionsLock.RLock()
	for key, option := range options {
		option.Lock()
		if option.activeValue != nil {
			activeValues[key] = option.activeValue.getData(option)
		}
		option.Unlock()
	}
	optionsLock.RUnlock()

	data, err := MapToJSON(activeValues)
	if err == nil && strings.ToLower(filepath.Ext(path)) != ".json" {
		data, err = yaml.JSONToYAML(data)
	}
	if err != nil {
		log.Errorf("config: failed to save config: %s", err)
		return err
	}

	if err := utils.EnsureParentDirectory(path, 0o0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o0600)
}

// JSONToMap parses and flattens a hierarchical json object.
func JSONToMap(jsonData []byte) (map[string]interface{}, error) {
	loaded := make(map[string]interface{})
	err := json.Unmarshal(jsonData, &loaded)
	if err != nil {
		return nil, err
	}

	flatten(loaded, loaded, "")
	return loaded, nil
}

// YAMLToMap parses and flattens a hierarchical yaml object.
func YAMLToMap(yamlData []byte) (map[string]interface{}, error) {
	jsonData, err := yaml.YAMLToJSON(yamlData)
	if err != nil {
		return nil, err
	}
	return JSONToMap(jsonData)
}

func flatten(rootMap, subMap map[string]interface{}, subKey string) {
	for key, entry := range subMap {
		// get next level key
		subbedKey := key
		if subKey != "" {
			subbedKey = fmt.Sprintf("%s/%s", subKey, key)
		}

		// check for next subMap
		nextSub, ok := entry.(map[string]interface{})
		if ok {
			flatten(rootMap, nextSub, subbedKey)
			delete(rootMap, key)
		} else if subKey != "" {
			// only set if not on root level
			rootMap[subbedKey] = entry
		}
	}
}

// MapToJSON expands a flattened map and returns it as json. The map is altered in the process.
func MapToJSON(values map[string]interface{}) ([]byte, error) {
	expand(values)
	return json.MarshalIndent(values, "", "  ")
}

// expand expands a flattened map.
func expand(mapData map[string]interface{}) {
	var newMaps []map[string]interface{}
	for key, entry := range mapData {
		if !strings.Contains(key, "/") {
			continue
		}
		parts := strings.SplitN(key, "/", 2)

		// get subMap
		subMap, ok := mapData[parts[0]].(map[string]interface{})
		if !ok {
			subMap = make(map[string]interface{})
			newMaps = append(newMaps, subMap)
			mapData[parts[0]] = subMap
		}

		subMap[parts[1]] = entry
		delete(mapData, key)
	}
	for _, entry := range newMaps {
		expand(entry)
	}
}
