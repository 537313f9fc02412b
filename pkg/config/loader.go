package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type layer struct {
	file     string
	optional bool
}

// LoadConfig 按层读取配置: base.yaml 必须存在，<env>.yaml 可选，
// 最后用 secrets.env 和进程环境变量替换 ${VAR} 占位符。
func LoadConfig(env string, configDir string) (map[string]any, error) {
	if configDir == "" {
		configDir = "config"
	}

	layers := []layer{{file: "base.yaml"}}
	if env != "" && env != "base" {
		layers = append(layers, layer{file: env + ".yaml", optional: true})
	}

	merged := map[string]any{}
	for _, l := range layers {
		values, err := readYAML(filepath.Join(configDir, l.file))
		if errors.Is(err, fs.ErrNotExist) && l.optional {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", l.file, err)
		}
		merged = overlay(merged, values)
	}

	secrets, err := readSecrets(filepath.Join(configDir, "secrets.env"))
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets.env: %w", err)
	}
	return expandPlaceholders(merged, secrets), nil
}

// Decode 将合并后的配置解码到结构体
func Decode(raw map[string]any, out any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to re-encode config: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

func readYAML(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// readSecrets returns an empty map when the file does not exist.
func readSecrets(path string) (map[string]string, error) {
	secrets, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	return secrets, err
}

// overlay 返回 base 的副本，top 中的键覆盖同名键，嵌套 map 递归合并
func overlay(base, top map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(top))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range top {
		below, belowIsMap := out[k].(map[string]any)
		above, aboveIsMap := v.(map[string]any)
		if belowIsMap && aboveIsMap {
			out[k] = overlay(below, above)
		} else {
			out[k] = v
		}
	}
	return out
}

// expandPlaceholders 替换字符串值里的 ${NAME}，secrets 优先于进程环境变量
func expandPlaceholders(values map[string]any, secrets map[string]string) map[string]any {
	lookup := func(name string) string {
		if v, ok := secrets[name]; ok {
			return v
		}
		return os.Getenv(name)
	}

	out := make(map[string]any, len(values))
	for k, v := range values {
		switch typed := v.(type) {
		case map[string]any:
			out[k] = expandPlaceholders(typed, secrets)
		case string:
			if strings.Contains(typed, "${") {
				typed = os.Expand(typed, lookup)
			}
			out[k] = typed
		default:
			out[k] = v
		}
	}
	return out
}

// GetEnv 获取环境变量，如果未设置则返回默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetConfigEnv 获取配置环境（CONFIG_ENV，默认 local）
func GetConfigEnv() string {
	return GetEnv("CONFIG_ENV", "local")
}
