package main

import (
	"context"
	"fmt"

	"github.com/trezcool/ratiba/core/settings"
)

// setUpgradeDeadline saves a new global upgrade deadline configuration, or a course one when courseID is set.
func (cli *commandLine) setUpgradeDeadline(courseID string, uud settings.UpdateUpgradeDeadline) error {
	ctx := context.Background()
	if err := uud.Validate(cli.validate); err != nil {
		return err
	}

	if courseID == "" {
		cfg, err := cli.settingsSvc.SaveUpgradeDeadline(ctx, uud)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "upgrade deadline: enabled=%t days=%d\n", cfg.Enabled, cfg.DeadlineDays)
		return nil
	}

	if _, err := cli.courseSvc.GetOverview(ctx, courseID); err != nil {
		return err
	}
	cfg, err := cli.settingsSvc.SaveCourseUpgradeDeadline(ctx, courseID, uud)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "upgrade deadline of %s: enabled=%t opt_out=%t days=%d\n",
		cfg.CourseID, cfg.Enabled, cfg.OptOut, cfg.DeadlineDays)
	return nil
}

func (cli *commandLine) setRefundWindow(ur settings.UpdateRefund) error {
	if err := ur.Validate(cli.validate); err != nil {
		return err
	}
	cfg, err := cli.settingsSvc.SaveRefund(context.Background(), ur)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "refund window: %d day(s)\n", cfg.RefundWindowDays())
	return nil
}
