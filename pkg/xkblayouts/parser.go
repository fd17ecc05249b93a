package xkblayouts

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

const DefaultEvdevXMLPath = "/usr/share/X11/xkb/rules/evdev.xml"

func ParseLayouts(path string) (*XkbConfigRegistry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

func Parse(r io.Reader) (*XkbConfigRegistry, error) {
	registry := &XkbConfigRegistry{}
	err := xml.NewDecoder(r).Decode(registry)
	if err != nil {
		return nil, fmt.Errorf("decode xml: %w", err)
	}

	return registry, nil
}

// PrettyName returns the description Hyprland reports as the active keymap.
func (r *XkbConfigRegistry) PrettyName(layout, variant string) string {
	for _, l := range r.LayoutList.Layout {
		if l.ConfigItem.Name != layout {
			continue
		}
		if variant == "" {
			return l.ConfigItem.Description
		}

		for _, v := range l.VariantList.Variant {
			if v.ConfigItem.Name == variant {
				return v.ConfigItem.Description
			}
		}
	}

	return ""
}

// Find maps a description back to its layout and variant codes.
func (r *XkbConfigRegistry) Find(prettyName string) (layout, variant string, ok bool) {
	for _, l := range r.LayoutList.Layout {
		if l.ConfigItem.Description == prettyName {
			return l.ConfigItem.Name, "", true
		}

		for _, v := range l.VariantList.Variant {
			if v.ConfigItem.Description == prettyName {
				return l.ConfigItem.Name, v.ConfigItem.Name, true
			}
		}
	}

	return "", "", false
}
