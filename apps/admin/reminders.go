package main

import (
	"context"
	"fmt"
	"time"
)

func (cli *commandLine) sendReminders(day time.Time) error {
	sent, err := cli.reminder.SendUpgradeReminders(context.Background(), day)
	if err != nil {
		return err
	}
	cli.mailSvc.Wait()
	fmt.Fprintf(cli.out, "%d reminder(s) sent for %s\n", sent, day.Format("2006-01-02"))
	return nil
}
