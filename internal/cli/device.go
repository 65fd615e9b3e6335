package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/wattsonlabs/wattson/pkg/catalog"
	"github.com/wattsonlabs/wattson/pkg/model"
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage registered appliances",
}

var deviceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register an appliance",
	Long: `Register an appliance. Power rating and daily usage hours default to the
catalog preset for the appliance type when not given.`,
	RunE: runDeviceAdd,
}

var deviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered appliances",
	RunE:  runDeviceList,
}

var deviceRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an appliance",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeviceRemove,
}

var deviceOnCmd = &cobra.Command{
	Use:   "on <id>",
	Short: "Mark an appliance as switched on",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runDeviceToggle(cmd, args[0], true) },
}

var deviceOffCmd = &cobra.Command{
	Use:   "off <id>",
	Short: "Mark an appliance as switched off",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runDeviceToggle(cmd, args[0], false) },
}

func init() {
	rootCmd.AddCommand(deviceCmd)
	deviceCmd.AddCommand(deviceAddCmd)
	deviceCmd.AddCommand(deviceListCmd)
	deviceCmd.AddCommand(deviceRemoveCmd)
	deviceCmd.AddCommand(deviceOnCmd)
	deviceCmd.AddCommand(deviceOffCmd)

	deviceAddCmd.Flags().StringP("name", "n", "", "Appliance name")
	deviceAddCmd.Flags().StringP("type", "t", "other", "Appliance type (ac, fridge, tv, fan, lights, other)")
	deviceAddCmd.Flags().Float64P("watts", "w", 0, "Power rating in watts")
	deviceAddCmd.Flags().Float64("hours", 0, "Daily usage hours")
	deviceAddCmd.Flags().String("user", "", "User id (default from config)")
	_ = deviceAddCmd.MarkFlagRequired("name")

	deviceListCmd.Flags().String("user", "", "User id (default from config)")
}

func resolveUser(cmd *cobra.Command, cfgUser string) string {
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		user = cfgUser
	}
	return user
}

func runDeviceAdd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	devType, _ := cmd.Flags().GetString("type")
	watts, _ := cmd.Flags().GetFloat64("watts")
	hours, _ := cmd.Flags().GetFloat64("hours")

	cat, err := catalog.LoadOrDefault(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if preset, ok := cat.Lookup(model.DeviceType(devType)); ok {
		if watts <= 0 {
			watts = preset.PowerRatingW
		}
		if hours <= 0 {
			hours = preset.DailyUsageHours
		}
	}

	_, _, _, store, err := initEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	device := &model.Device{
		UserID:          resolveUser(cmd, cfg.Defaults.User),
		Name:            name,
		Type:            model.DeviceType(devType),
		PowerRatingW:    watts,
		DailyUsageHours: hours,
		IsOn:            true,
	}
	if err := store.SaveDevice(cmd.Context(), device); err != nil {
		return fmt.Errorf("save device: %w", err)
	}

	fmt.Printf("Registered appliance:\n")
	fmt.Printf("  ID:     %s\n", device.ID)
	fmt.Printf("  Name:   %s\n", device.Name)
	fmt.Printf("  Type:   %s\n", device.Type)
	fmt.Printf("  Power:  %.0f W\n", device.PowerRatingW)
	fmt.Printf("  Hours:  %.1f h/day\n", device.DailyUsageHours)
	fmt.Printf("  Est:    %.2f kWh/day\n", device.DailyEnergyKWh())

	return nil
}

func runDeviceList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	_, _, _, store, err := initEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	devices, err := store.ListDevices(cmd.Context(), resolveUser(cmd, cfg.Defaults.User))
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No appliances registered. Use 'wattson device add' to register one.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tTYPE\tPOWER\tHOURS/DAY\tEST KWH/DAY\tSTATE\n")
	for _, d := range devices {
		state := "off"
		if d.IsOn {
			state = "on"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f W\t%.1f\t%.2f\t%s\n",
			d.ID, d.Name, d.Type, d.PowerRatingW, d.DailyUsageHours, d.DailyEnergyKWh(), state)
	}
	w.Flush()

	return nil
}

func runDeviceRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	_, _, _, store, err := initEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteDevice(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Removed appliance %s\n", args[0])
	return nil
}

func runDeviceToggle(cmd *cobra.Command, id string, on bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	_, _, _, store, err := initEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SetDeviceOn(cmd.Context(), id, on); err != nil {
		return err
	}
	state := "off"
	if on {
		state = "on"
	}
	fmt.Printf("Appliance %s switched %s\n", id, state)
	return nil
}
