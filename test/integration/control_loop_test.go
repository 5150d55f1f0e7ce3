//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/power_mon/internal/config"
	"github.com/eliteGoblin/focusd/power_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
	"github.com/eliteGoblin/focusd/power_mon/internal/infra"
	"github.com/eliteGoblin/focusd/power_mon/internal/policy"
	"github.com/eliteGoblin/focusd/power_mon/internal/usecase"
	"github.com/eliteGoblin/focusd/power_mon/test/fixtures"
)

const testConfig = `
processes:
  heavy: [blender.exe]
turbo:
  groups:
    - name: creative
      members: [photoshop.exe, premiere.exe]
      min_matches: 2
`

var _ = Describe("Control loop", func() {
	var (
		tmpDir        string
		desktop       *fixtures.FakeDesktop
		input         *fixtures.ScriptedInput
		actuator      *infra.DryRunActuator
		statusFile    *infra.StatusFile
		store         *infra.EncryptedSessionStore
		activityPath  string
		idleThreshold time.Duration
		priorMode     domain.Mode
		controller    *daemon.Controller
		cancel        context.CancelFunc
		done          chan error
	)

	currentMode := func() domain.Mode {
		mode, _ := actuator.CurrentMode(context.Background())
		return mode
	}

	activityLog := func() string {
		data, _ := os.ReadFile(activityPath)
		return string(data)
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "powermon-integration-*")
		Expect(err).NotTo(HaveOccurred())

		store, err = infra.OpenSessionStore(filepath.Join(tmpDir, "data"))
		Expect(err).NotTo(HaveOccurred())

		desktop = fixtures.NewFakeDesktop()
		input = fixtures.NewScriptedInput()
		idleThreshold = time.Hour
		priorMode = domain.ModeHighPerformance
	})

	JustBeforeEach(func() {
		cfg, err := config.Parse([]byte(testConfig))
		Expect(err).NotTo(HaveOccurred())

		logger := zap.NewNop()
		classifierConfig := usecase.DefaultClassifierConfig()
		classifierConfig.CacheLifetime = 10 * time.Millisecond

		actuator = infra.NewDryRunActuator(priorMode, logger)
		statusFile = infra.NewStatusFile(filepath.Join(tmpDir, "status.json"))
		activityPath = filepath.Join(tmpDir, "logs", "activity.log")

		controller = daemon.NewController(
			daemon.ControllerConfig{Interval: 20 * time.Millisecond, IdleThreshold: idleThreshold, AppVersion: "integration"},
			usecase.NewTracker(idleThreshold, []domain.InputSource{input}, logger),
			usecase.NewClassifier(classifierConfig, desktop, desktop, cfg.HeavySet(), cfg.TurboRule(), logger),
			policy.NewDecider(logger),
			actuator,
			infra.NewActivityLog(activityPath),
			statusFile,
			store,
			logger,
		)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
		go func() { done <- controller.Run(ctx) }()

		Eventually(func() bool {
			_, ok := controller.LastStatus()
			return ok
		}).Should(BeTrue())
	})

	AfterEach(func() {
		cancel()
		Eventually(controller.State, 2*time.Second).Should(Equal(daemon.StateStopped))
		Expect(store.Close()).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	Describe("startup", func() {
		It("should switch to balanced and publish status", func() {
			Eventually(currentMode).Should(Equal(domain.ModeBalanced))

			snap, err := statusFile.Read()
			Expect(err).NotTo(HaveOccurred())
			Expect(snap).NotTo(BeNil())
			Expect(snap.PID).To(Equal(os.Getpid()))
			Expect(snap.PriorMode).To(Equal(domain.ModeHighPerformance))
			Expect(snap.SessionID).To(Equal(controller.Session().ID))

			Expect(activityLog()).To(ContainSubstring("--- Starting power monitor ---"))
			Expect(input.Active()).To(BeTrue())
		})
	})

	Describe("heavy applications", func() {
		It("should use high performance while a heavy app has a window", func() {
			desktop.Launch("blender.exe", "notepad.exe")
			Eventually(currentMode).Should(Equal(domain.ModeHighPerformance))

			desktop.Quit("blender.exe")
			Eventually(currentMode).Should(Equal(domain.ModeBalanced))
			Expect(activityLog()).To(ContainSubstring("[heavy: blender.exe]"))
		})
	})

	Describe("turbo groups", func() {
		It("should require every configured member", func() {
			desktop.Launch("photoshop.exe")
			Consistently(currentMode, 100*time.Millisecond).Should(Equal(domain.ModeBalanced))

			desktop.Launch("premiere.exe", "blender.exe")
			Eventually(currentMode).Should(Equal(domain.ModeTurbo))

			snap, err := statusFile.Read()
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Last.TurboApps).To(Equal([]string{"photoshop.exe", "premiere.exe"}))
		})
	})

	Context("when the user goes idle", func() {
		BeforeEach(func() {
			idleThreshold = 300 * time.Millisecond
		})

		It("should switch to power saver and back on input", func() {
			Eventually(currentMode, 2*time.Second).Should(Equal(domain.ModePowerSaver))

			Eventually(func() domain.Mode {
				input.PressKey()
				return currentMode()
			}, 3*time.Second, 20*time.Millisecond).Should(Equal(domain.ModeBalanced))

			Expect(activityLog()).To(ContainSubstring("Action: power_saver"))
		})
	})

	Describe("shutdown", func() {
		It("should restore the prior mode and close the session", func() {
			Eventually(currentMode).Should(Equal(domain.ModeBalanced))

			controller.Stop()
			Eventually(done, 2*time.Second).Should(Receive(BeNil()))

			Expect(currentMode()).To(Equal(domain.ModeHighPerformance))
			Expect(input.Active()).To(BeFalse())
			Expect(activityLog()).To(ContainSubstring("--- Power monitor stopped at"))

			recent, err := store.Recent(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(HaveLen(1))
			Expect(recent[0].Finished()).To(BeTrue())
			Expect(recent[0].PriorMode).To(Equal(domain.ModeHighPerformance))
			Expect(recent[0].LastMode).To(Equal(domain.ModeBalanced))
			Expect(recent[0].AppVersion).To(Equal("integration"))
		})
	})

	Context("when the previous run crashed", func() {
		BeforeEach(func() {
			Expect(store.BeginSession(domain.Session{
				ID:        "crashed-session",
				PID:       999999,
				StartedAt: time.Now().Add(-time.Hour),
				PriorMode: domain.ModePowerSaver,
			})).To(Succeed())
		})

		It("should restore the mode found before the crashed run", func() {
			Expect(controller.Session().PriorMode).To(Equal(domain.ModePowerSaver))

			unfinished, err := store.LastUnfinished()
			Expect(err).NotTo(HaveOccurred())
			Expect(unfinished).NotTo(BeNil())
			Expect(unfinished.ID).To(Equal(controller.Session().ID))

			cancel()
			Eventually(done, 2*time.Second).Should(Receive(BeNil()))
			Expect(currentMode()).To(Equal(domain.ModePowerSaver))
		})
	})
})
