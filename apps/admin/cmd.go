package main

import (
	"bufio"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/settings"
	"github.com/trezcool/ratiba/core/user"
)

var (
	isTerminalFunc = term.IsTerminal // mockable
	confirmFunc    = confirm         // mockable

	errHelp    = errors.New("help provided")
	errAborted = errors.New("aborted")

	// migrations that drop data
	destructiveMigrations = map[string]bool{"down": true, "down-to": true, "reset": true, "redo": true}
)

type commandLine struct {
	db          *sql.DB
	conf        *core.Config
	validate    *validator.Validate
	usrSvc      user.Service
	courseSvc   course.Service
	settingsSvc settings.Service
	reminder    *schedule.Reminder
	mailSvc     core.EmailService
	out         io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-name NAME] [-admin] [-staff] - create or update an active user")
	fmt.Println("  upgradedeadline [-course COURSE_ID] -days N [-enabled] [-optout] - change the upgrade deadline configuration")
	fmt.Println("  refundwindow -days N - change the refund window")
	fmt.Println("  sendreminders [-date YYYY-MM-DD] - email the learners whose upgrade deadline falls on date (default: today)")
	fmt.Println("  token -username USERNAME|EMAIL - print an API token for the user")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := newFlagSet("adduser")
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant every role to the user.")
	addUserStaff := addUserCmd.Bool("staff", false, "Grant the staff role to the user.")

	deadlineCmd := newFlagSet("upgradedeadline")
	deadlineCourse := deadlineCmd.String("course", "", "Change the configuration of this course only.")
	deadlineEnabled := deadlineCmd.Bool("enabled", false, "Enable the per-learner upgrade deadline.")
	deadlineOptOut := deadlineCmd.Bool("optout", false, "Take the course out of the per-learner upgrade deadline.")
	deadlineDays := deadlineCmd.Int("days", settings.DefaultDeadlineDays, "Days between the enrollment (or course start) and the deadline.")

	refundCmd := newFlagSet("refundwindow")
	refundDays := refundCmd.Int("days", -1, "Days during which a paid enrollment can be refunded.")

	remindersCmd := newFlagSet("sendreminders")
	remindersDate := remindersCmd.String("date", "", "The deadline day, YYYY-MM-DD.")

	tokenCmd := newFlagSet("token")
	tokenUname := tokenCmd.String("username", "", "The user's username or email.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := parseFlags(addUserCmd, args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserEmail, *addUserName, *addUserAdmin, *addUserStaff)

	case "upgradedeadline":
		if err := parseFlags(deadlineCmd, args[2:]); err != nil {
			return err
		}
		return cli.setUpgradeDeadline(*deadlineCourse, settings.UpdateUpgradeDeadline{
			Enabled:      *deadlineEnabled,
			OptOut:       *deadlineOptOut,
			DeadlineDays: *deadlineDays,
		})

	case "refundwindow":
		if err := parseFlags(refundCmd, args[2:]); err != nil {
			return err
		}
		if *refundDays < 0 {
			refundCmd.Usage()
			return errHelp
		}
		return cli.setRefundWindow(settings.UpdateRefund{RefundWindowDays: *refundDays})

	case "sendreminders":
		if err := parseFlags(remindersCmd, args[2:]); err != nil {
			return err
		}
		day := time.Now().UTC()
		if *remindersDate != "" {
			var err error
			if day, err = time.Parse("2006-01-02", *remindersDate); err != nil {
				return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", *remindersDate)
			}
		}
		return cli.sendReminders(day)

	case "token":
		if err := parseFlags(tokenCmd, args[2:]); err != nil {
			return err
		}
		if *tokenUname == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.printToken(*tokenUname)

	default:
		cli.printUsage()
		return errHelp
	}
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

// confirm asks a yes/no question on the terminal. Anything but y/yes is a no.
func confirm(question string) (bool, error) {
	fmt.Printf("%s [y/N]: ", question)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// confirmDestructive only asks when stdin is a terminal, so scripted runs are never blocked.
func confirmDestructive(command string) error {
	if !destructiveMigrations[command] || !isTerminalFunc(int(syscall.Stdin)) {
		return nil
	}
	ok, err := confirmFunc(fmt.Sprintf("migrate %s may drop data. Continue?", command))
	if err != nil {
		return err
	}
	if !ok {
		return errAborted
	}
	return nil
}
