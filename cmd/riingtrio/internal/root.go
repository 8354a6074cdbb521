package internal

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"strconv"
	"strings"
	"syscall"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	riingtrio "github.com/diffficult/ttriingtrio-controller"
	"github.com/diffficult/ttriingtrio-controller/device"
)

var (
	cfgFile    string
	vidFlag    string
	pidFlag    string
	port       int
	statusPort int
	ledCount   int
	percent    int
)

var RootCmd = &cobra.Command{
	Use:   "riingtrio",
	Short: "riingtrio controls Thermaltake Riing Trio RGB fans over USB HID.",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of riingtrio",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("riingtrio v1.0.0 -- HEAD")
	},
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the control daemon, continuously applying the configured state",
	RunE: func(cmd *cobra.Command, args []string) error {
		var config riingtrio.Config
		if err := viper.Unmarshal(&config); err != nil {
			return err
		}

		controller, err := openController()
		if err != nil {
			return err
		}
		defer controller.Close()

		scheduler, err := riingtrio.NewScheduler(controller, &config)
		if err != nil {
			return err
		}
		scheduler.Start()

		done := make(chan error, 1)
		go func() { done <- scheduler.Wait() }()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		select {
		case err := <-done:
			return errors.Wrap(err, "scheduler exited")
		case <-c:
			log.Info("Gracefully stopping scheduler.")
			if err := scheduler.Stop(); err != nil {
				return err
			}
			log.Info("Gracefully stopped scheduler.")
			return nil
		}
	},
}

var offCmd = &cobra.Command{
	Use:   "off",
	Short: "Turn off all LEDs on a port",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setUniform(device.Off)
	},
}

var whiteCmd = &cobra.Command{
	Use:   "white",
	Short: "Set all LEDs on a port to white",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setUniform(device.White)
	},
}

var speedCmd = &cobra.Command{
	Use:   "speed",
	Short: "Set the fan speed on a port",
	RunE: func(cmd *cobra.Command, args []string) error {
		if percent < 0 || percent > 100 {
			return fmt.Errorf("invalid speed %d, must be 0-100", percent)
		}
		controller, err := openController()
		if err != nil {
			return err
		}
		defer controller.Close()

		ctx := context.Background()
		if err := controller.Init(ctx); err != nil {
			return err
		}
		if err := controller.SetSpeed(ctx, byte(port), byte(percent)); err != nil {
			return err
		}
		fmt.Printf("Port %d: speed set to %d%%\n", port, percent)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current speed and RPM for one port, or all ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		controller, err := openController()
		if err != nil {
			return err
		}
		defer controller.Close()

		ctx := context.Background()
		if err := controller.Init(ctx); err != nil {
			return err
		}

		ports := []int{statusPort}
		if statusPort == 0 {
			ports = []int{1, 2, 3, 4, 5}
		}
		for _, p := range ports {
			status, err := controller.Status(ctx, byte(p))
			if err != nil {
				fmt.Printf("Port %d: %v\n", p, err)
				continue
			}
			fmt.Printf("Port %d: speed %d%%, %d RPM\n", p, status.Speed, status.RPM)
		}
		return nil
	},
}

func setUniform(color device.Color) error {
	controller, err := openController()
	if err != nil {
		return err
	}
	defer controller.Close()

	ctx := context.Background()
	if err := controller.Init(ctx); err != nil {
		return err
	}
	colors := make([]device.Color, ledCount)
	for i := range colors {
		colors[i] = color
	}
	return controller.SetRGB(ctx, byte(port), colors)
}

func openController() (device.Controller, error) {
	vid, err := parseHex(vidFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid vid %q: %v", vidFlag, err)
	}
	pid, err := parseHex(pidFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid pid %q: %v", pidFlag, err)
	}
	controller, err := device.Open(vid, pid)
	if err != nil && vid == device.VendorID && errors.Cause(err) == device.ErrDeviceUnavailable {
		// The exact product id varies per unit; scan the whole range.
		log.WithField("pid", pidFlag).Debug("no device on requested product id, scanning range")
		return device.OpenAny()
	}
	return controller, err
}

func parseHex(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	return uint16(v), err
}

func init() {
	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(daemonCmd)
	RootCmd.AddCommand(offCmd)
	RootCmd.AddCommand(whiteCmd)
	RootCmd.AddCommand(speedCmd)
	RootCmd.AddCommand(statusCmd)

	RootCmd.PersistentFlags().StringVar(&vidFlag, "vid", "0x264a", "USB vendor id")
	RootCmd.PersistentFlags().StringVar(&pidFlag, "pid", "0x2135", "USB product id (range 0x2135-0x2144)")

	daemonCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is ./riingtrio.yaml)")

	for _, cmd := range []*cobra.Command{offCmd, whiteCmd, speedCmd} {
		cmd.Flags().IntVarP(&port, "port", "p", 1, "port number (1-5)")
	}
	statusCmd.Flags().IntVarP(&statusPort, "port", "p", 0, "port number (1-5), omit for all ports")
	offCmd.Flags().IntVar(&ledCount, "led-count", 30, "number of LEDs on the port")
	whiteCmd.Flags().IntVar(&ledCount, "led-count", 30, "number of LEDs on the port")
	speedCmd.Flags().IntVarP(&percent, "speed", "s", 50, "speed percentage (0-100)")

	viper.SetDefault("daemon.interval_seconds", 5)
	viper.SetDefault("daemon.speed_once_at_startup", true)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("RIINGTRIO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(path.Join(home, ".riingtrio"))
		viper.AddConfigPath("/etc/riingtrio/")
		viper.SetConfigName("riingtrio")
	}

	if err := viper.ReadInConfig(); err != nil {
		log.WithError(err).Debug("no config file read")
	}
}
