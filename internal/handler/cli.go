package handler

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-records/internal/models"
	"github.com/noah-isme/academic-records/internal/repository"
	"github.com/noah-isme/academic-records/internal/service"
	appErrors "github.com/noah-isme/academic-records/pkg/errors"
)

// ErrHelp is returned after usage has been printed.
var ErrHelp = errors.New("help provided")

type stateStore interface {
	Save(catalog *repository.Catalog) error
	Clear() error
}

// Services bundles the services the command line drives.
type Services struct {
	Catalog    *service.CatalogService
	Enrollment *service.EnrollmentService
	Evaluation *service.EvaluationService
	Reports    *service.ReportService
	Exports    *service.ExportService
}

// Options tunes CommandLine.
type Options struct {
	// Autosave flushes the catalog after every successful mutating command.
	Autosave bool
}

// CommandLine dispatches one invocation to the services.
type CommandLine struct {
	svc     Services
	catalog *repository.Catalog
	store   stateStore
	opts    Options
	out     io.Writer
	errOut  io.Writer
	printer *Printer
	logger  *zap.Logger
}

// NewCommandLine constructs a CommandLine writing results to out and usage to errOut.
func NewCommandLine(svc Services, catalog *repository.Catalog, store stateStore, opts Options, out, errOut io.Writer, logger *zap.Logger) *CommandLine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandLine{
		svc:     svc,
		catalog: catalog,
		store:   store,
		opts:    opts,
		out:     out,
		errOut:  errOut,
		printer: NewPrinter(out),
		logger:  logger,
	}
}

type command struct {
	mutates bool
	usage   string
	run     func(args []string) error
}

func (cli *CommandLine) commands() map[string]command {
	return map[string]command{
		"student":    {true, "student add|edit|list      manage students", cli.student},
		"instructor": {true, "instructor add|list        manage instructors", cli.instructor},
		"course":     {true, "course add|list            manage courses", cli.course},
		"offering":   {true, "offering add|remove|list   manage offerings", cli.offering},
		"enroll":     {true, "enroll                     enroll a student in an offering", cli.enroll},
		"withdraw":   {true, "withdraw                   withdraw a student from a course", cli.withdraw},
		"leave":      {true, "leave                      toggle a student's leave of absence", cli.leave},
		"grade":      {true, "grade                      record an assessment score", cli.grade},
		"absence":    {true, "absence                    record absences", cli.absence},
		"report":     {false, "report offering|course|instructor|student|prune", cli.report},
		"reset":      {false, "reset -confirm             erase every record", cli.reset},
	}
}

func (cli *CommandLine) printUsage() {
	fmt.Fprintln(cli.errOut, "Usage: academic COMMAND [SUBCOMMAND] [FLAGS]")
	fmt.Fprintln(cli.errOut, "Commands:")
	for _, name := range []string{"student", "instructor", "course", "offering", "enroll", "withdraw", "leave", "grade", "absence", "report", "reset"} {
		fmt.Fprintln(cli.errOut, "  "+cli.commands()[name].usage)
	}
}

// Run executes args, which exclude the program name.
func (cli *CommandLine) Run(args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return ErrHelp
	}
	cmd, ok := cli.commands()[args[0]]
	if !ok {
		cli.printUsage()
		return ErrHelp
	}
	if err := cmd.run(args[1:]); err != nil {
		return err
	}
	if cmd.mutates && cli.opts.Autosave && !isListing(args) {
		if err := cli.store.Save(cli.catalog); err != nil {
			return err
		}
		cli.logger.Debug("catalog autosaved", zap.String("command", args[0]))
	}
	return nil
}

func isListing(args []string) bool {
	return len(args) > 1 && args[1] == "list"
}

func (cli *CommandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.errOut)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ErrHelp
		}
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.ExitCode, "invalid flags for "+fs.Name())
	}
	return nil
}

func wasSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func (cli *CommandLine) subcommand(group string, args []string, handlers map[string]func([]string) error) error {
	if len(args) == 0 {
		cli.printUsage()
		return ErrHelp
	}
	run, ok := handlers[args[0]]
	if !ok {
		fmt.Fprintf(cli.errOut, "unknown %s subcommand %q\n", group, args[0])
		return ErrHelp
	}
	return run(args[1:])
}

func (cli *CommandLine) student(args []string) error {
	return cli.subcommand("student", args, map[string]func([]string) error{
		"add": func(args []string) error {
			fs := cli.newFlagSet("student add")
			id := fs.String("id", "", "student id")
			name := fs.String("name", "", "full name")
			courseOfStudy := fs.String("course", "", "course of study")
			special := fs.Bool("special", false, "special status")
			if err := parseFlags(fs, args); err != nil {
				return err
			}
			s, err := cli.svc.Catalog.RegisterStudent(service.RegisterStudentRequest{ID: *id, Name: *name, CourseOfStudy: *courseOfStudy, SpecialStatus: *special})
			if err != nil {
				return err
			}
			cli.printer.Message("Student %s registered.", s.ID)
			return nil
		},
		"edit": func(args []string) error {
			fs := cli.newFlagSet("student edit")
			id := fs.String("id", "", "student id")
			name := fs.String("name", "", "new full name")
			courseOfStudy := fs.String("course", "", "new course of study")
			special := fs.Bool("special", false, "special status")
			if err := parseFlags(fs, args); err != nil {
				return err
			}
			req := service.UpdateStudentRequest{ID: *id}
			if wasSet(fs, "name") {
				req.Name = name
			}
			if wasSet(fs, "course") {
				req.CourseOfStudy = courseOfStudy
			}
			if wasSet(fs, "special") {
				req.SpecialStatus = special
			}
			s, err := cli.svc.Catalog.UpdateStudent(req)
			if err != nil {
				return err
			}
			cli.printer.Message("Student %s updated.", s.ID)
			return nil
		},
		"list": func([]string) error {
			cli.printer.Students(cli.svc.Catalog.Students())
			return nil
		},
	})
}

func (cli *CommandLine) instructor(args []string) error {
	return cli.subcommand("instructor", args, map[string]func([]string) error{
		"add": func(args []string) error {
			fs := cli.newFlagSet("instructor add")
			id := fs.String("id", "", "instructor id")
			name := fs.String("name", "", "full name")
			dept := fs.String("dept", "", "department")
			if err := parseFlags(fs, args); err != nil {
				return err
			}
			i, err := cli.svc.Catalog.RegisterInstructor(service.RegisterInstructorRequest{ID: *id, Name: *name, Department: *dept})
			if err != nil {
				return err
			}
			cli.printer.Message("Instructor %s registered.", i.ID)
			return nil
		},
		"list": func([]string) error {
			cli.printer.Instructors(cli.svc.Catalog.Instructors())
			return nil
		},
	})
}

func (cli *CommandLine) course(args []string) error {
	return cli.subcommand("course", args, map[string]func([]string) error{
		"add": func(args []string) error {
			fs := cli.newFlagSet("course add")
			code := fs.String("code", "", "course code")
			name := fs.String("name", "", "course name")
			hours := fs.Int("hours", 0, "credit hours")
			prereqs := fs.String("prereq", "", "comma separated prerequisite course codes")
			if err := parseFlags(fs, args); err != nil {
				return err
			}
			var codes []string
			if *prereqs != "" {
				codes = strings.Split(*prereqs, ",")
			}
			c, err := cli.svc.Catalog.RegisterCourse(service.RegisterCourseRequest{Code: *code, Name: *name, CreditHours: *hours, Prerequisites: codes})
			if err != nil {
				return err
			}
			cli.printer.Message("Course %s registered.", c.Code)
			return nil
		},
		"list": func([]string) error {
			cli.printer.Courses(cli.svc.Catalog.Courses())
			return nil
		},
	})
}

func (cli *CommandLine) offering(args []string) error {
	return cli.subcommand("offering", args, map[string]func([]string) error{
		"add": func(args []string) error {
			fs := cli.newFlagSet("offering add")
			code := fs.String("code", "", "offering code")
			courseCode := fs.String("course", "", "course code")
			instructorID := fs.String("instructor", "", "instructor id")
			term := fs.String("term", "", "academic term, e.g. 2024.1")
			scheme := fs.String("scheme", string(models.GradingScheme1), "grading scheme: Scheme1 or Scheme2")
			inPerson := fs.Bool("in-person", false, "taught in person")
			room := fs.String("room", "", "room, in-person offerings only")
			schedule := fs.String("schedule", "", "weekly schedule, e.g. \"Mon 14-16\"")
			capacity := fs.Int("capacity", 0, "maximum roster size")
			sessions := fs.Int("sessions", 0, "total number of sessions")
			if err := parseFlags(fs, args); err != nil {
				return err
			}
			o, err := cli.svc.Catalog.OpenOffering(service.OpenOfferingRequest{
				Code:          *code,
				CourseCode:    *courseCode,
				InstructorID:  *instructorID,
				Term:          *term,
				GradingScheme: models.GradingScheme(*scheme),
				InPerson:      *inPerson,
				Room:          *room,
				Schedule:      *schedule,
				Capacity:      *capacity,
				TotalSessions: *sessions,
			})
			if err != nil {
				return err
			}
			cli.printer.Message("Offering %s opened for course %s.", o.Code, o.CourseCode)
			return nil
		},
		"remove": func(args []string) error {
			fs := cli.newFlagSet("offering remove")
			code := fs.String("code", "", "offering code")
			if err := parseFlags(fs, args); err != nil {
				return err
			}
			if err := cli.svc.Catalog.CloseOffering(*code); err != nil {
				return err
			}
			cli.printer.Message("Offering %s removed.", *code)
			return nil
		},
		"list": func(args []string) error {
			fs := cli.newFlagSet("offering list")
			courseCode := fs.String("course", "", "only offerings of this course")
			if err := parseFlags(fs, args); err != nil {
				return err
			}
			offerings, err := cli.svc.Catalog.Offerings(*courseCode)
			if err != nil {
				return err
			}
			cli.printer.Offerings(offerings)
			return nil
		},
	})
}

func (cli *CommandLine) enroll(args []string) error {
	fs := cli.newFlagSet("enroll")
	studentID := fs.String("student", "", "student id")
	courseCode := fs.String("course", "", "course code")
	offeringCode := fs.String("offering", "", "offering code")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	o, err := cli.svc.Enrollment.Enroll(service.EnrollRequest{StudentID: *studentID, CourseCode: *courseCode, OfferingCode: *offeringCode})
	if err != nil {
		return err
	}
	cli.printer.Message("Student %s enrolled in %s (%d seats left).", *studentID, o.Code, o.OpenSeats())
	return nil
}

func (cli *CommandLine) withdraw(args []string) error {
	fs := cli.newFlagSet("withdraw")
	studentID := fs.String("student", "", "student id")
	courseCode := fs.String("course", "", "course code")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	n, err := cli.svc.Enrollment.WithdrawFromCourse(*studentID, *courseCode)
	if err != nil {
		return err
	}
	cli.printer.Message("Student %s withdrawn from %d offering(s) of %s.", *studentID, n, *courseCode)
	return nil
}

func (cli *CommandLine) leave(args []string) error {
	fs := cli.newFlagSet("leave")
	studentID := fs.String("student", "", "student id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	result, err := cli.svc.Enrollment.RequestLeaveOfAbsence(*studentID)
	if err != nil {
		return err
	}
	if result.OnLeave {
		cli.printer.Message("Student %s is now on leave; withdrawn from %d offering(s).", *studentID, result.Withdrawn)
	} else {
		cli.printer.Message("Student %s returned from leave.", *studentID)
	}
	return nil
}

func (cli *CommandLine) grade(args []string) error {
	fs := cli.newFlagSet("grade")
	studentID := fs.String("student", "", "student id")
	offeringCode := fs.String("offering", "", "offering code")
	label := fs.String("label", "", "assessment label: P1, P2, P3, L or S")
	rawScore := fs.String("score", "", "score between 0 and 10")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(*rawScore), 64)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid score %q", *rawScore))
	}
	if err := cli.svc.Evaluation.RecordGrade(service.GradeRequest{StudentID: *studentID, OfferingCode: *offeringCode, Label: *label, Score: score}); err != nil {
		return err
	}
	cli.printer.Message("Recorded %s=%s for %s in %s.", *label, strconv.FormatFloat(score, 'f', -1, 64), *studentID, *offeringCode)
	return nil
}

func (cli *CommandLine) absence(args []string) error {
	fs := cli.newFlagSet("absence")
	studentID := fs.String("student", "", "student id")
	offeringCode := fs.String("offering", "", "offering code")
	count := fs.Int("count", 1, "number of absences")
	force := fs.Bool("force", false, "record even past the absence allowance")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	summary, err := cli.svc.Evaluation.RecordAbsences(service.AbsenceRequest{StudentID: *studentID, OfferingCode: *offeringCode, Count: *count, Force: *force})
	if err != nil {
		return err
	}
	cli.printer.AbsenceSummary(*studentID, *offeringCode, summary)
	return nil
}

func (cli *CommandLine) report(args []string) error {
	build := func(kind string, lookup func(id string) (service.Exportable, error), print func(service.Exportable)) func([]string) error {
		return func(args []string) error {
			fs := cli.newFlagSet("report " + kind)
			id := fs.String("id", "", kind+" code or id")
			format := fs.String("export", "", "also export as csv or pdf")
			if err := parseFlags(fs, args); err != nil {
				return err
			}
			var exportFormat service.ReportFormat
			if *format != "" {
				f, err := service.ParseReportFormat(*format)
				if err != nil {
					return err
				}
				exportFormat = f
			}
			report, err := lookup(*id)
			if err != nil {
				return err
			}
			print(report)
			if exportFormat == "" {
				return nil
			}
			result, err := cli.svc.Exports.Export(report, exportFormat)
			if err != nil {
				return err
			}
			cli.printer.Message("Exported to %s", result.Path)
			return nil
		}
	}
	reports := cli.svc.Reports
	return cli.subcommand("report", args, map[string]func([]string) error{
		"offering": build("offering",
			func(id string) (service.Exportable, error) { return reports.OfferingReport(id) },
			func(r service.Exportable) { cli.printer.OfferingReport(r.(*service.OfferingReport)) }),
		"course": build("course",
			func(id string) (service.Exportable, error) { return reports.CourseReport(id) },
			func(r service.Exportable) { cli.printer.CourseReport(r.(*service.CourseReport)) }),
		"instructor": build("instructor",
			func(id string) (service.Exportable, error) { return reports.InstructorReport(id) },
			func(r service.Exportable) { cli.printer.InstructorReport(r.(*service.InstructorReport)) }),
		"student": build("student",
			func(id string) (service.Exportable, error) { return reports.StudentReport(id) },
			func(r service.Exportable) { cli.printer.StudentReport(r.(*service.StudentReport)) }),
		"prune": func(args []string) error {
			fs := cli.newFlagSet("report prune")
			olderThan := fs.Duration("older-than", 30*24*time.Hour, "remove exports older than this")
			if err := parseFlags(fs, args); err != nil {
				return err
			}
			deleted, err := cli.svc.Exports.Cleanup(*olderThan)
			if err != nil {
				return err
			}
			cli.printer.Message("Removed %d export(s).", len(deleted))
			return nil
		},
	})
}

func (cli *CommandLine) reset(args []string) error {
	fs := cli.newFlagSet("reset")
	confirm := fs.Bool("confirm", false, "required: erase every student, instructor, course and offering")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if !*confirm {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "reset erases all records; pass -confirm to proceed")
	}
	cli.catalog.Reset()
	if err := cli.store.Clear(); err != nil {
		return err
	}
	cli.logger.Warn("catalog reset")
	cli.printer.Message("All records erased.")
	return nil
}
