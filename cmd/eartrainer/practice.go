package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/pavelanni/eartrainer/internal/exercise"
	appI18n "github.com/pavelanni/eartrainer/internal/i18n"
	"github.com/pavelanni/eartrainer/internal/model"
	"github.com/pavelanni/eartrainer/internal/session"
	"github.com/pavelanni/eartrainer/internal/store"
)

func runPractice(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	cfg := trainerConfig(v)

	ctx := cmd.Context()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := appI18n.Init(cfg.Lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx = appI18n.WithLocalizer(ctx, appI18n.NewLocalizer(cfg.Lang))

	exerciseID, err := pickExercise(ctx, db, args)
	if err != nil {
		return err
	}

	out, err := openPlayback(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			slog.Error("failed to close playback", "error", err)
		}
	}()

	sess, err := session.New(exercise.Default(), exerciseID, out.engine, db)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	ready := sess.LoadSettingsAsync(ctx)
	if err := db.SetPreference(ctx, store.PrefLastExercise, exerciseID); err != nil {
		slog.Warn("failed to remember exercise", "error", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt: "> ",
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	defer func() {
		_ = rl.Close()
	}()

	c := &console{sess: sess, db: db, out: rl.Stdout(), interruptible: interruptOnSignal}
	fmt.Fprintln(c.out, appI18n.Td(ctx, "PracticeIntro", map[string]any{"Name": sess.Snapshot().Name}))
	// Persisted settings may change the answers, so wait before listing them.
	<-ready
	c.printAnswers(ctx)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return c.finish(ctx)
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		quit, err := c.handle(ctx, line)
		if err != nil {
			slog.Error("command failed", "input", line, "error", err)
		}
		if quit {
			return c.finish(ctx)
		}
	}
}

// pickExercise returns the exercise named on the command line, else the one
// practised last, else the first built-in exercise.
func pickExercise(ctx context.Context, db *store.Store, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	last, err := db.GetPreference(ctx, store.PrefLastExercise)
	if err != nil {
		return "", fmt.Errorf("read last exercise: %w", err)
	}
	if last != "" {
		return last, nil
	}
	return exercise.NotesInKeyID, nil
}

// console interprets one line of practice input at a time.
type console struct {
	sess *session.Session
	db   *store.Store
	out  io.Writer
	// interruptible derives the context of one playback.
	interruptible func(context.Context) (context.Context, context.CancelFunc)
}

// interruptOnSignal cancels a playback on Ctrl-C. Readline only sees Ctrl-C
// while it reads a line, so the signal is caught here for the duration of
// the playback and released afterwards.
func interruptOnSignal(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt)
}

// handle runs one command or scores one answer and reports whether the user
// asked to quit.
func (c *console) handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)

	switch {
	case line == "":
		return false, c.play(ctx, true)
	case line == "r":
		return false, c.play(ctx, false)
	case line == "n":
		if err := c.sess.NextQuestion(); err != nil {
			return false, err
		}
		return false, c.play(ctx, true)
	case line == "q":
		return true, nil
	case line == "h":
		fmt.Fprintln(c.out, appI18n.T(ctx, "PracticeHelp"))
		return false, nil
	case line == "s":
		c.printStats(ctx)
		return false, nil
	case line == "settings":
		c.printSettings()
		return false, nil
	case len(fields) == 2 && fields[0] == "cadence":
		return false, c.setCadence(ctx, fields[1])
	case len(fields) == 2 && fields[0] == "set":
		return false, c.set(ctx, fields[1])
	}
	return false, c.answer(ctx, line)
}

func (c *console) play(ctx context.Context, withCadence bool) error {
	playCtx, stop := c.interruptible(ctx)
	defer stop()

	var err error
	if withCadence {
		err = c.sess.PlayCurrentCadenceAndQuestion(playCtx)
	} else {
		err = c.sess.PlayCurrentQuestion(playCtx)
	}
	switch {
	case errors.Is(err, session.ErrPlaybackInProgress):
		fmt.Fprintln(c.out, appI18n.T(ctx, "ErrPlaybackBusy"))
		return nil
	case errors.Is(err, context.Canceled) && ctx.Err() == nil:
		fmt.Fprintln(c.out, appI18n.T(ctx, "PlaybackStopped"))
		return nil
	}
	return err
}

func (c *console) answer(ctx context.Context, input string) error {
	st := c.sess.Snapshot()
	i := slices.IndexFunc(st.AnswerList.Flat(), func(a model.Answer) bool {
		return strings.EqualFold(string(a), input)
	})
	if i < 0 {
		fmt.Fprintln(c.out, appI18n.Td(ctx, "UnknownInput", map[string]any{"Input": input}))
		return nil
	}

	res, err := c.sess.Answer(ctx, st.AnswerList.Flat()[i])
	if errors.Is(err, session.ErrQuestionComplete) {
		fmt.Fprintln(c.out, appI18n.T(ctx, "ErrQuestionComplete"))
		return nil
	}
	if err != nil {
		return err
	}
	if !res.Correct {
		fmt.Fprintln(c.out, appI18n.T(ctx, "Wrong"))
		return nil
	}
	fmt.Fprintln(c.out, appI18n.T(ctx, "Correct"))
	if res.Completed {
		if err := res.Feedback.Wait(); err != nil {
			slog.Warn("feedback playback failed", "error", err)
		}
		fmt.Fprintln(c.out, appI18n.T(ctx, "QuestionComplete"))
	}
	return nil
}

func (c *console) setCadence(ctx context.Context, value string) error {
	on, err := parseOnOff(value)
	if err != nil {
		return err
	}
	data := c.sess.SettingsData()
	data.GlobalSettings.PlayCadence = on
	if err := c.sess.UpdateSettings(ctx, data); err != nil {
		return err
	}
	if on {
		fmt.Fprintln(c.out, appI18n.T(ctx, "CadenceOn"))
	} else {
		fmt.Fprintln(c.out, appI18n.T(ctx, "CadenceOff"))
	}
	return nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "yes", "true", "1":
		return true, nil
	case "off", "no", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

// set applies a "key=value" assignment to the exercise settings.
func (c *console) set(ctx context.Context, assignment string) error {
	st := c.sess.Snapshot()
	if len(st.ExerciseSettingsDescriptor) == 0 {
		fmt.Fprintln(c.out, appI18n.T(ctx, "NotConfigurable"))
		return nil
	}
	key, raw, ok := strings.Cut(assignment, "=")
	if !ok {
		return fmt.Errorf("expected key=value, got %q", assignment)
	}
	i := slices.IndexFunc(st.ExerciseSettingsDescriptor, func(d model.SettingsControlDescriptor) bool {
		return d.Key == key
	})
	if i < 0 {
		return fmt.Errorf("unknown setting %q", key)
	}
	value, err := parseSettingValue(st.ExerciseSettingsDescriptor[i].ControlType, raw)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}

	data := c.sess.SettingsData()
	data.ExerciseSettings[key] = value
	if err := c.sess.UpdateSettings(ctx, data); err != nil {
		return err
	}
	fmt.Fprintln(c.out, appI18n.T(ctx, "SettingsSaved"))
	c.printAnswers(ctx)
	return nil
}

func parseSettingValue(ct model.ControlType, raw string) (model.SettingValue, error) {
	switch ct {
	case model.ControlSlider:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.SettingValue{}, err
		}
		return model.NumberValue(n), nil
	case model.ControlCheckbox:
		b, err := parseOnOff(raw)
		if err != nil {
			return model.SettingValue{}, err
		}
		return model.BoolValue(b), nil
	case model.ControlListSelect:
		var items []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return model.ListValue(items...), nil
	default:
		return model.StringValue(raw), nil
	}
}

func (c *console) printAnswers(ctx context.Context) {
	var rows []string
	for _, row := range c.sess.Snapshot().AnswerList.Rows {
		names := make([]string, len(row))
		for i, a := range row {
			names[i] = string(a)
		}
		rows = append(rows, strings.Join(names, ", "))
	}
	fmt.Fprintln(c.out, appI18n.Td(ctx, "AnswerChoices", map[string]any{"Answers": strings.Join(rows, " | ")}))
}

func (c *console) printStats(ctx context.Context) {
	st := c.sess.Snapshot()
	percent := 0
	if st.TotalQuestions > 0 {
		percent = int(math.Round(100 * float64(st.TotalCorrectAnswers) / float64(st.TotalQuestions)))
	}
	fmt.Fprintf(c.out, "%s, %s\n",
		appI18n.Tp(ctx, "QuestionsAnswered", st.TotalQuestions),
		appI18n.Td(ctx, "AnsweredWithoutMistakes", map[string]any{
			"Correct": st.TotalCorrectAnswers,
			"Percent": percent,
		}),
	)
}

func (c *console) printSettings() {
	data := c.sess.SettingsData()
	fmt.Fprintf(c.out, "cadence: %t\n", data.GlobalSettings.PlayCadence)
	for _, d := range c.sess.Snapshot().ExerciseSettingsDescriptor {
		v := data.ExerciseSettings[d.Key]
		var shown string
		switch v.Kind {
		case model.SettingNumber:
			shown = strconv.FormatFloat(v.Number, 'f', -1, 64)
		case model.SettingBool:
			shown = strconv.FormatBool(v.Bool)
		case model.SettingList:
			shown = strings.Join(v.List, ",")
		default:
			shown = v.String
		}
		fmt.Fprintf(c.out, "%s (%s): %s\n", d.Key, d.ControlType, shown)
	}
}

// finish records the session and says goodbye.
func (c *console) finish(ctx context.Context) error {
	result := c.sess.Result()
	if _, err := c.db.RecordSessionResult(context.WithoutCancel(ctx), result); err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	slog.Info("session recorded",
		"exercise", result.ExerciseID,
		"questions", result.TotalQuestions,
		"correct", result.TotalCorrectAnswers,
	)
	c.printStats(ctx)
	fmt.Fprintln(c.out, appI18n.T(ctx, "SessionSaved"))
	return nil
}
