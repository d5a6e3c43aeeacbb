package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/sumesh2279/ecobee-cli/internal/api"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show thermostat status",
	RunE: func(cmd *cobra.Command, args []string) error {
		thermostat, err := current.client.Thermostat(cmd.Context(),
			"includeRuntime", "includeSettings", "includeWeather",
			"includeSensors", "includeEquipmentStatus", "includeEvents")
		if err != nil {
			return err
		}

		runtime := thermostat.Get("runtime")
		currentF := api.TenthsToF(runtime.Get("actualTemperature").Int())
		heatF := api.TenthsToF(runtime.Get("desiredHeat").Int())
		coolF := api.TenthsToF(runtime.Get("desiredCool").Int())

		fmt.Println("ECOBEE STATUS")
		fmt.Println("========================================")
		fmt.Printf("Name:      %s\n", thermostat.Get("name").String())
		fmt.Printf("Current:   %s\n", formatTemp(currentF))
		fmt.Printf("Humidity:  %d%%\n", runtime.Get("actualHumidity").Int())
		fmt.Printf("Heat set:  %s\n", formatTemp(heatF))
		fmt.Printf("Cool set:  %s\n", formatTemp(coolF))
		fmt.Printf("Mode:      %s\n", thermostat.Get("settings.hvacMode").String())

		thermostat.Get("events").ForEach(func(_, event gjson.Result) bool {
			if event.Get("running").Bool() && event.Get("type").String() == "hold" {
				fmt.Printf("Hold:      active until %s %s\n",
					event.Get("endDate").String(), event.Get("endTime").String())
				return false
			}
			return true
		})

		if forecast := thermostat.Get("weather.forecasts.0"); forecast.Exists() {
			outsideF := api.TenthsToF(forecast.Get("temperature").Int())
			fmt.Printf("Outside:   %s, %s\n", formatTemp(outsideF), forecast.Get("condition").String())
		}

		if equipment := thermostat.Get("equipmentStatus").String(); equipment != "" {
			fmt.Printf("Running:   %s\n", equipment)
		} else {
			fmt.Println("Running:   (idle)")
		}

		if sensors := thermostat.Get("remoteSensors"); sensors.Exists() && len(sensors.Array()) > 0 {
			fmt.Println()
			fmt.Println("SENSORS")
			fmt.Println("----------------------------------------")
			sensors.ForEach(func(_, sensor gjson.Result) bool {
				fmt.Printf("  %s: %s %s\n",
					sensor.Get("name").String(),
					sensorTemp(sensor),
					sensorOccupancy(sensor))
				return true
			})
		}
		return nil
	},
}

var sensorsCmd = &cobra.Command{
	Use:   "sensors",
	Short: "Show detailed sensor readings",
	RunE: func(cmd *cobra.Command, args []string) error {
		thermostat, err := current.client.Thermostat(cmd.Context(), "includeSensors")
		if err != nil {
			return err
		}

		fmt.Println("SENSORS")
		fmt.Println("==================================================")
		thermostat.Get("remoteSensors").ForEach(func(_, sensor gjson.Result) bool {
			fmt.Printf("\n%s (%s)\n", sensor.Get("name").String(), sensor.Get("type").String())
			fmt.Printf("  In use:    %s\n", yesNo(sensor.Get("inUse").Bool()))
			if temp := sensorTemp(sensor); temp != "N/A" {
				fmt.Printf("  Temp:      %s\n", temp)
			}
			if humidity := capability(sensor, "humidity"); humidity != "" {
				fmt.Printf("  Humidity:  %s%%\n", humidity)
			}
			fmt.Printf("  Occupied:  %s\n", yesNo(capability(sensor, "occupancy") == "true"))
			return true
		})
		return nil
	},
}

// capability picks one reading out of a sensor's capability list.
func capability(sensor gjson.Result, capType string) string {
	value := ""
	sensor.Get("capability").ForEach(func(_, entry gjson.Result) bool {
		if entry.Get("type").String() == capType {
			value = entry.Get("value").String()
			return false
		}
		return true
	})
	return value
}

func sensorTemp(sensor gjson.Result) string {
	raw := capability(sensor, "temperature")
	tenths, err := strconv.ParseFloat(raw, 64)
	if raw == "" || err != nil || tenths == 0 {
		return "N/A"
	}
	return formatTemp(tenths / 10)
}

func sensorOccupancy(sensor gjson.Result) string {
	if capability(sensor, "occupancy") == "true" {
		return "(occupied)"
	}
	return ""
}

// formatTemp renders a Fahrenheit reading as Celsius with the Fahrenheit
// value in parentheses.
func formatTemp(f float64) string {
	return fmt.Sprintf("%.1f°C (%.1f°F)", api.FToC(f), f)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func init() {
	rootCmd.AddCommand(statusCmd, sensorsCmd)
}
