package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CollectInteractive prompts for the same fields a config file would carry.
// The flow mirrors the file format: website, then items until a blank name,
// then optional credentials.
func CollectInteractive(in io.Reader, out io.Writer) (*Config, error) {
	reader := bufio.NewReader(in)

	website := prompt(reader, out, "Enter the website (e.g., amazon.com, walmart.com): ")
	if website == "" {
		return nil, fmt.Errorf("no website specified")
	}

	var items []Item
	for {
		name := prompt(reader, out, "\nEnter item name (or leave blank to finish): ")
		if name == "" {
			break
		}

		item := Item{Name: name}
		item.URL = prompt(reader, out, "Enter product URL (optional, adds the item by direct link): ")
		item.Description = prompt(reader, out, "Enter item description (optional): ")

		qty, err := promptQuantity(reader, out)
		if err != nil {
			return nil, err
		}
		item.Quantity = qty

		options := map[string]string{}
		for {
			key := prompt(reader, out, "Enter option name (e.g., 'color', 'size') or leave blank to finish options: ")
			if key == "" {
				break
			}
			options[key] = prompt(reader, out, fmt.Sprintf("Enter value for %s: ", key))
		}
		if len(options) > 0 {
			item.Options = options
		}

		items = append(items, item)

		if !yes(prompt(reader, out, "Add another item? (y/n): ")) {
			break
		}
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no items specified")
	}

	cfg := &Config{Website: website, Items: items}

	if yes(prompt(reader, out, "\nDo you want to provide login credentials now? (y/n): ")) {
		cfg.Credentials.Username = prompt(reader, out, "Enter username/email: ")
		cfg.Credentials.Password = prompt(reader, out, "Enter password: ")
	}

	cfg.ApplyEnvDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// promptQuantity asks for a quantity; blank means 1.
func promptQuantity(reader *bufio.Reader, out io.Writer) (int, error) {
	raw := prompt(reader, out, "Enter quantity (or leave blank for default 1): ")
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid quantity %q", raw)
	}
	return n, nil
}

func prompt(reader *bufio.Reader, out io.Writer, msg string) string {
	fmt.Fprint(out, msg)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func yes(answer string) bool {
	return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
}
