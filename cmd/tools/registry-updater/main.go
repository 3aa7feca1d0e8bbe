// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"broker-backoffice/pkg/registry"
)

const defaultPath = "configs/activity-registry.json"

func main() {
	syncCmd := flag.NewFlagSet("sync", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	syncPath := syncCmd.String("path", defaultPath, "Path to registry file")

	updatePath := updateCmd.String("path", defaultPath, "Path to registry file")
	idUpdate := updateCmd.String("id", "", "Activity ID to update")
	field := updateCmd.String("field", "", "Field to update (status, version, timeout, retries, description)")
	value := updateCmd.String("value", "", "New value for the field")

	validatePath := validateCmd.String("path", defaultPath, "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "sync":
		syncCmd.Parse(os.Args[2:])
		added, err := syncRegistry(*syncPath)
		if err != nil {
			fmt.Printf("Error syncing registry: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Registry synced, %d activities added.\n", added)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateActivity(*updatePath, *idUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating activity: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated activity %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateRegistry(*validatePath); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}

	default:
		help()
	}
}

// syncRegistry adds catalog activities missing from the file, keeping any
// local edits to activities already present.
func syncRegistry(path string) (int, error) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return 0, fmt.Errorf("failed to load registry: %w", err)
		}
		reg = &registry.ActivityRegistry{}
	}

	catalog := registry.Catalog()
	if reg.Version == "" {
		reg.Version = catalog.Version
	}
	added := 0
	for _, activity := range catalog.Activities {
		if _, ok := reg.Find(activity.TaskType); ok {
			continue
		}
		reg.Activities = append(reg.Activities, activity)
		added++
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}
	return added, registry.SaveRegistry(path, reg)
}

func updateActivity(path, id, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	for i := range reg.Activities {
		if reg.Activities[i].ID != id {
			continue
		}
		switch field {
		case "status":
			reg.Activities[i].ImplementationStatus = value
		case "version":
			reg.Activities[i].Version = value
		case "description":
			reg.Activities[i].Description = value
		case "timeout":
			reg.Activities[i].Timeout = value
		case "retries":
			retries, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid retries value: %w", err)
			}
			reg.Activities[i].Retries = retries
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		if err := reg.Validate(); err != nil {
			return err
		}
		return registry.SaveRegistry(path, reg)
	}
	return fmt.Errorf("activity with ID %s not found", id)
}

func validateRegistry(path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return err
	}
	if missing := reg.Missing(); len(missing) > 0 {
		return fmt.Errorf("workers missing from registry: %v", missing)
	}
	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  sync      Add the built-in worker activities missing from the registry
  update    Update an existing activity's field
  validate  Validate the registry file against the built-in workers
  help      Show this help message

Examples:
  registry-updater sync -path configs/activity-registry.json
  registry-updater update -id advance-lead -field timeout -value 20s
  registry-updater validate`)
}
