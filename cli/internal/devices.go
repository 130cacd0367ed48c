package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devilmonastery/infohunter/internal/api"
	"github.com/devilmonastery/infohunter/internal/pkg/format"
)

func newDevicesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Manage push notification devices",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := getCliContext(cmd).Service.ListDevices(cmd.Context())
			if err != nil {
				return err
			}
			if list.Total == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No devices")
				return nil
			}
			t := newTable(cmd.OutOrStdout(), "DEVICE ID", "PLATFORM", "PUSH TOKEN")
			for _, d := range list.Devices {
				t.row(d.DeviceID, d.Platform, format.Truncate(d.PushToken, 24))
			}
			return t.flush()
		},
	})

	var req api.DeviceRegistration
	var platform string
	register := &cobra.Command{
		Use:   "register PUSH_TOKEN",
		Short: "Register a device for push notifications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.Platform, err = api.ParsePlatform(platform); err != nil {
				return err
			}
			req.PushToken = args[0]
			resp, err := getCliContext(cmd).Service.RegisterDevice(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Device %s %s\n", resp.DeviceID, resp.Status)
			return nil
		},
	}
	register.Flags().StringVar(&platform, "platform", "ios", "Platform (ios, android)")
	register.Flags().StringVar(&req.DeviceID, "device-id", "", "Device ID (derived from the push token when empty)")
	register.Flags().StringVar(&req.AppVersion, "app-version", "", "App version")
	cmd.AddCommand(register)

	cmd.AddCommand(&cobra.Command{
		Use:   "unregister DEVICE_ID",
		Short: "Stop sending pushes to a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := getCliContext(cmd).Service.UnregisterDevice(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Device %s unregistered\n", args[0])
			return nil
		},
	})

	return cmd
}

func newPushCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push notification tools",
	}

	var req api.PushTestRequest
	test := &cobra.Command{
		Use:   "test",
		Short: "Send a test notification to your devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := getCliContext(cmd).Service.TestPush(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s, sent to %d devices\n", resp.Status, resp.Sent)
			return nil
		},
	}
	test.Flags().StringVar(&req.Title, "title", "", "Notification title")
	test.Flags().StringVar(&req.Body, "body", "", "Notification body")
	cmd.AddCommand(test)

	return cmd
}
