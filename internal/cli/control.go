package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sumesh2279/ecobee-cli/internal/api"
)

var (
	tempFahrenheit bool
	holdType       string
)

// coolSpreadTenths keeps the cool setpoint a few degrees above the heat
// setpoint in a temperature hold, matching the portal's own behavior.
const coolSpreadTenths = 40

var setTempCmd = &cobra.Command{
	Use:   "set-temp <temperature>",
	Short: "Set a temperature hold (Celsius by default)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		temp, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid temperature %q", args[0])
		}

		tempF := api.CToF(temp)
		if tempFahrenheit {
			tempF = temp
		}
		heatTenths := api.FToTenths(tempF)

		if err = current.client.SetHoldTemp(cmd.Context(), heatTenths, heatTenths+coolSpreadTenths, holdType); err != nil {
			return err
		}
		fmt.Printf("Temperature set to %s (hold: %s)\n", formatTemp(tempF), holdType)
		return nil
	},
}

var setModeCmd = &cobra.Command{
	Use:       "set-mode <mode>",
	Short:     "Set the HVAC mode",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"heat", "cool", "auto", "off", "auxHeatOnly"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cobra.OnlyValidArgs(cmd, args); err != nil {
			return err
		}
		if err := current.client.SetMode(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Mode set to %s\n", args[0])
		return nil
	},
}

var holdCmd = &cobra.Command{
	Use:       "hold <climate>",
	Short:     "Hold a comfort setting (home/away/sleep)",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"home", "away", "sleep"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cobra.OnlyValidArgs(cmd, args); err != nil {
			return err
		}
		if err := current.client.SetClimateHold(cmd.Context(), args[0], holdType); err != nil {
			return err
		}
		fmt.Printf("Holding %q (hold: %s)\n", args[0], holdType)
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the scheduled program",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.client.ResumeProgram(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Resumed scheduled program")
		return nil
	},
}

func init() {
	setTempCmd.Flags().BoolVarP(&tempFahrenheit, "fahrenheit", "f", false, "temperature is in Fahrenheit")
	setTempCmd.Flags().StringVarP(&holdType, "hold-type", "t", "nextTransition", "hold type (nextTransition, indefinite, holdHours)")
	holdCmd.Flags().StringVarP(&holdType, "hold-type", "t", "nextTransition", "hold type (nextTransition, indefinite, holdHours)")
	rootCmd.AddCommand(setTempCmd, setModeCmd, holdCmd, resumeCmd)
}
