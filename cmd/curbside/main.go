package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"curbside/internal/app"
	"curbside/internal/domain"
	"curbside/internal/engine"
	"curbside/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "curbside",
	Short: "Curbside waste-collection dispatch",
	Long: `Curbside plans municipal waste collection from citizen reports.
Citizens file reports, forecasting scores zone demand, dispatch turns open
reports into driver runs with geometrically ordered stops, and drivers work
the stops until the run completes. Everything lives in the .curbside
workspace database; 'curbside serve' exposes the same operations over HTTP.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	_ = godotenv.Load()
	viper.SetEnvPrefix("CURBSIDE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("user-id", "local-admin", "caller identifier")
	rootCmd.PersistentFlags().String("role", "", "override the caller's stored role")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("user-id", rootCmd.PersistentFlags().Lookup("user-id"))
	_ = viper.BindPFlag("role", rootCmd.PersistentFlags().Lookup("role"))
}

func registerCommands() {
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(dispatchCmd())
	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(kpiCmd())
	rootCmd.AddCommand(wardCmd())
	rootCmd.AddCommand(zoneCmd())
	rootCmd.AddCommand(rosterCmd())
	rootCmd.AddCommand(logCmd())
}

func withRuntime(ctx context.Context, fn func(context.Context, *app.Runtime) error) error {
	rt, err := app.Open(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

func withEngine(ctx context.Context, fn func(context.Context, *app.Runtime, *engine.Engine) error) error {
	return withRuntime(ctx, func(ctx context.Context, rt *app.Runtime) error {
		return fn(ctx, rt, rt.Engine())
	})
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				fmt.Println("schema is up to date")
				return nil
			})
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed demo wards, zones, drivers and reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				adminID := viper.GetString("user-id")
				if err := eng.Repo.UpsertUserRole(ctx, adminID, domain.RoleAdmin, time.Now().UTC().Format(time.RFC3339)); err != nil {
					return err
				}
				admin, err := rt.Identity(ctx, adminID, "")
				if err != nil {
					return err
				}

				ward, err := eng.CreateWard(ctx, admin, "North Ward", "NW")
				if err != nil {
					return err
				}
				south, err := eng.CreateWard(ctx, admin, "South Ward", "SW")
				if err != nil {
					return err
				}
				lat, lng := 35.6895, 139.6917
				zoneA, err := eng.CreateZone(ctx, admin, ward.ID, "Zone A", "NW-A", &lat, &lng)
				if err != nil {
					return err
				}
				zoneB, err := eng.CreateZone(ctx, admin, south.ID, "Zone B", "SW-B", nil, nil)
				if err != nil {
					return err
				}
				if _, err := eng.CreateCollectionPoint(ctx, admin, domain.CollectionPoint{
					ZoneID: zoneA.ID, Label: "Station Front", Latitude: 35.6910, Longitude: 139.7005,
				}); err != nil {
					return err
				}

				vehicle, err := eng.RegisterVehicle(ctx, admin, "TRUCK-01", 3500)
				if err != nil {
					return err
				}
				driverID := "driver-" + uuid.NewString()[:8]
				if _, err := eng.RegisterDriver(ctx, admin, driverID, &vehicle.ID); err != nil {
					return err
				}

				citizen, err := rt.Identity(ctx, "citizen-"+uuid.NewString()[:8], "")
				if err != nil {
					return err
				}
				demo := []struct {
					zone     int64
					lat, lng float64
				}{
					{zoneA.ID, 35.6880, 139.6930},
					{zoneA.ID, 35.6930, 139.7010},
					{zoneB.ID, 35.6500, 139.7400},
				}
				for _, d := range demo {
					zoneID := d.zone
					if _, err := eng.CreateReport(ctx, citizen, engine.ReportInput{
						ZoneID:      &zoneID,
						Category:    "uncollected",
						Description: "demo: bags left at curb",
						Latitude:    d.lat,
						Longitude:   d.lng,
					}); err != nil {
						return err
					}
				}
				fmt.Printf("seeded 2 wards, 2 zones, driver %s, %d reports\n", driverID, len(demo))
				return nil
			})
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath, schedule string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				cfg := rt.Config
				if addr == "" {
					addr = cfg.Server.Addr
				}
				if basePath == "" {
					basePath = cfg.Server.BasePath
				}
				secret := os.Getenv("CURBSIDE_JWT_SECRET")
				if secret == "" {
					secret = cfg.Auth.JWTSecret
				}
				if secret == "" {
					return fmt.Errorf("CURBSIDE_JWT_SECRET (or auth.jwt_secret in curbside.yml) is required")
				}
				handler, err := server.New(server.Config{
					Engine:   eng,
					BasePath: basePath,
					Auth: server.AuthConfig{
						JWTSecret:     secret,
						AllowDevLogin: cfg.Auth.AllowDevAuth,
					},
				})
				if err != nil {
					return err
				}

				if schedule == "" {
					schedule = cfg.Dispatch.RefreshSchedule
				}
				if schedule != "" {
					c := cron.New()
					if _, err := c.AddFunc(schedule, func() {
						jobCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
						defer cancel()
						date := eng.Today()
						if _, err := eng.RefreshForecasts(jobCtx, date); err != nil {
							fmt.Println("scheduled forecast refresh:", err)
						}
						if _, err := eng.RefreshKpiSnapshot(jobCtx, date); err != nil {
							fmt.Println("scheduled kpi refresh:", err)
						}
					}); err != nil {
						return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
					}
					c.Start()
					defer c.Stop()
					fmt.Printf("scheduled forecast/KPI refresh: %s\n", schedule)
				}

				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-cmd.Context().Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Curbside API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	cmd.Flags().StringVar(&schedule, "cron", "", "cron expression for the nightly forecast/KPI refresh")
	return cmd
}

func dispatchCmd() *cobra.Command {
	var date string
	var wardID int64
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Plan collection runs from open reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				opts := engine.DispatchOptions{Date: date}
				if wardID > 0 {
					opts.WardID = &wardID
				}
				res, err := eng.GenerateDailyRuns(ctx, opts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Run", "Date", "Driver", "Status", "Distance km"})
				for _, run := range res.Runs {
					driver := "unassigned"
					if run.DriverUserID != nil {
						driver = *run.DriverUserID
					}
					tw.AppendRow(table.Row{run.ID, run.RunDate, driver, run.Status, run.PlannedDistanceKm})
				}
				tw.Render()
				fmt.Printf("claimed %d reports, skipped %d\n", res.ClaimedReports, res.SkippedReports)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "run date (default today)")
	cmd.Flags().Int64Var(&wardID, "ward", 0, "restrict to one ward")
	return cmd
}

func forecastCmd() *cobra.Command {
	root := &cobra.Command{Use: "forecast", Short: "Zone demand forecasts"}

	var refreshDate string
	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Recompute forecasts for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				date := refreshDate
				if date == "" {
					date = eng.Today()
				}
				demands, err := eng.RefreshForecasts(ctx, date)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(demands)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Zone", "Name", "Score", "Volume kg", "Confidence"})
				for _, d := range demands {
					tw.AppendRow(table.Row{d.ZoneID, d.ZoneName, d.Score, d.PredictedVolumeKg, d.Confidence})
				}
				tw.Render()
				return nil
			})
		},
	}
	refresh.Flags().StringVar(&refreshDate, "date", "", "forecast date (default today)")

	var listDate string
	list := &cobra.Command{
		Use:   "list",
		Short: "List persisted forecasts for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				rows, err := eng.ListForecasts(ctx, listDate)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rows)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Zone", "Name", "Date", "Volume kg", "Confidence"})
				for _, r := range rows {
					tw.AppendRow(table.Row{r.ZoneID, r.ZoneName, r.ForecastDate, r.PredictedVolumeKg, r.Confidence})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&listDate, "date", "", "forecast date (default today)")

	root.AddCommand(refresh, list)
	return root
}

func reportCmd() *cobra.Command {
	root := &cobra.Command{Use: "report", Short: "Citizen reports"}

	var zoneID int64
	var category, description string
	var lat, lng float64
	create := &cobra.Command{
		Use:   "create",
		Short: "File a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				caller, err := rt.Identity(ctx, viper.GetString("user-id"), viper.GetString("role"))
				if err != nil {
					return err
				}
				in := engine.ReportInput{Category: category, Description: description, Latitude: lat, Longitude: lng}
				if zoneID > 0 {
					in.ZoneID = &zoneID
				}
				rep, err := eng.CreateReport(ctx, caller, in)
				if err != nil {
					return err
				}
				return printJSON(rep)
			})
		},
	}
	create.Flags().Int64Var(&zoneID, "zone", 0, "zone id")
	create.Flags().StringVar(&category, "category", "uncollected", "uncollected|illegal_dumping|overflowing_bin|other")
	create.Flags().StringVar(&description, "description", "", "what happened")
	create.Flags().Float64Var(&lat, "lat", 0, "latitude")
	create.Flags().Float64Var(&lng, "lng", 0, "longitude")

	var openOnly bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List reports (mine, or all with --role admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				caller, err := rt.Identity(ctx, viper.GetString("user-id"), viper.GetString("role"))
				if err != nil {
					return err
				}
				var items []domain.CitizenReport
				switch {
				case caller.Role == domain.RoleAdmin && openOnly:
					items, err = eng.ListOpenReports(ctx, caller)
				case caller.Role == domain.RoleAdmin:
					items, err = eng.ListAllReports(ctx, caller)
				default:
					items, err = eng.ListMyReports(ctx, caller)
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Reporter", "Category", "Status", "Created"})
				for _, r := range items {
					tw.AppendRow(table.Row{r.ID, r.ReporterUserID, r.Category, r.Status, r.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().BoolVar(&openOnly, "open", false, "only open and in_review reports")

	var closeID int64
	var closeStatus string
	closeCmd := &cobra.Command{
		Use:   "close",
		Short: "Resolve or reject a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				caller, err := rt.Identity(ctx, viper.GetString("user-id"), viper.GetString("role"))
				if err != nil {
					return err
				}
				rep, err := eng.CloseReport(ctx, caller, closeID, closeStatus)
				if err != nil {
					return err
				}
				return printJSON(rep)
			})
		},
	}
	closeCmd.Flags().Int64Var(&closeID, "id", 0, "report id")
	closeCmd.Flags().StringVar(&closeStatus, "status", "resolved", "resolved|rejected")

	root.AddCommand(create, list, closeCmd)
	return root
}

func runCmd() *cobra.Command {
	root := &cobra.Command{Use: "run", Short: "Driver runs"}

	var assignedDate string
	assigned := &cobra.Command{
		Use:   "assigned",
		Short: "Show the caller's current run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				caller, err := rt.Identity(ctx, viper.GetString("user-id"), viper.GetString("role"))
				if err != nil {
					return err
				}
				rws, err := eng.GetAssignedRun(ctx, caller, assignedDate)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rws)
				}
				fmt.Printf("run %d (%s) status=%s distance=%.2fkm\n", rws.Run.ID, rws.Run.RunDate, rws.Run.Status, rws.Run.PlannedDistanceKm)
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Seq", "Stop", "Lat", "Lng", "Status"})
				for _, s := range rws.Stops {
					tw.AppendRow(table.Row{s.Sequence, s.ID, s.Latitude, s.Longitude, s.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	assigned.Flags().StringVar(&assignedDate, "date", "", "run date (default today)")

	var stopRunID, stopID int64
	var stopStatus, stopNotes string
	stop := &cobra.Command{
		Use:   "stop",
		Short: "Record progress on a stop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				caller, err := rt.Identity(ctx, viper.GetString("user-id"), viper.GetString("role"))
				if err != nil {
					return err
				}
				var notes *string
				if stopNotes != "" {
					notes = &stopNotes
				}
				res, err := eng.SubmitStopUpdate(ctx, caller, stopRunID, stopID, stopStatus, notes)
				if err != nil {
					return err
				}
				if res.RunCompleted {
					fmt.Println("run completed")
				}
				return printJSON(res)
			})
		},
	}
	stop.Flags().Int64Var(&stopRunID, "run", 0, "run id")
	stop.Flags().Int64Var(&stopID, "stop", 0, "stop id")
	stop.Flags().StringVar(&stopStatus, "status", "done", "pending|done|skipped")
	stop.Flags().StringVar(&stopNotes, "notes", "", "optional notes")

	var roadRunID, roadZoneID int64
	var roadSeverity, roadDescription string
	road := &cobra.Command{
		Use:   "road",
		Short: "File a road condition issue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				caller, err := rt.Identity(ctx, viper.GetString("user-id"), viper.GetString("role"))
				if err != nil {
					return err
				}
				in := engine.RoadConditionInput{Severity: roadSeverity, Description: roadDescription}
				if roadRunID > 0 {
					in.RunID = &roadRunID
				}
				if roadZoneID > 0 {
					in.ZoneID = &roadZoneID
				}
				rep, err := eng.SubmitRoadConditionIssue(ctx, caller, in)
				if err != nil {
					return err
				}
				return printJSON(rep)
			})
		},
	}
	road.Flags().Int64Var(&roadRunID, "run", 0, "run id")
	road.Flags().Int64Var(&roadZoneID, "zone", 0, "zone id")
	road.Flags().StringVar(&roadSeverity, "severity", "medium", "low|medium|high")
	road.Flags().StringVar(&roadDescription, "description", "", "what is blocking the route")

	var showID int64
	show := &cobra.Command{
		Use:   "show",
		Short: "Inspect a run with its stops",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				caller, err := rt.Identity(ctx, viper.GetString("user-id"), viper.GetString("role"))
				if err != nil {
					return err
				}
				rws, err := eng.GetRunWithStops(ctx, caller, showID)
				if err != nil {
					return err
				}
				return printJSON(rws)
			})
		},
	}
	show.Flags().Int64Var(&showID, "id", 0, "run id")

	root.AddCommand(assigned, stop, road, show)
	return root
}

func kpiCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "kpi",
		Short: "Compute and persist the KPI snapshot for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				caller, err := rt.Identity(ctx, viper.GetString("user-id"), viper.GetString("role"))
				if err != nil {
					return err
				}
				snap, err := eng.BuildKpiSnapshot(ctx, caller, date)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(snap)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Date", "Runs", "Completed", "Open reports", "Resolved", "Avg response h", "Avg run min", "Distance km"})
				tw.AppendRow(table.Row{snap.Date, snap.PlannedRuns, snap.CompletedRuns, snap.OpenReports, snap.ResolvedReports,
					snap.AverageResponseHours, snap.AvgRunDurationMinutes, snap.TotalDistanceKm})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "snapshot date (default today)")
	return cmd
}

func wardCmd() *cobra.Command {
	root := &cobra.Command{Use: "ward", Short: "Manage wards"}

	var name, code string
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a ward",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				caller, err := rt.Identity(ctx, viper.GetString("user-id"), viper.GetString("role"))
				if err != nil {
					return err
				}
				w, err := eng.CreateWard(ctx, caller, name, code)
				if err != nil {
					return err
				}
				return printJSON(w)
			})
		},
	}
	add.Flags().StringVar(&name, "name", "", "ward name")
	add.Flags().StringVar(&code, "code", "", "ward code")

	list := &cobra.Command{
		Use:   "list",
		Short: "List wards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				caller, err := rt.Identity(ctx, viper.GetString("user-id"), viper.GetString("role"))
				if err != nil {
					return err
				}
				items, err := eng.ListWards(ctx, caller)
				if err != nil {
					return err
				}
				return printJSON(items)
			})
		},
	}

	root.AddCommand(add, list)
	return root
}

func zoneCmd() *cobra.Command {
	root := &cobra.Command{Use: "zone", Short: "Manage zones"}

	var wardID int64
	var name, code string
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a zone",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				caller, err := rt.Identity(ctx, viper.GetString("user-id"), viper.GetString("role"))
				if err != nil {
					return err
				}
				z, err := eng.CreateZone(ctx, caller, wardID, name, code, nil, nil)
				if err != nil {
					return err
				}
				return printJSON(z)
			})
		},
	}
	add.Flags().Int64Var(&wardID, "ward", 0, "ward id")
	add.Flags().StringVar(&name, "name", "", "zone name")
	add.Flags().StringVar(&code, "code", "", "zone code")

	list := &cobra.Command{
		Use:   "list",
		Short: "List zones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				caller, err := rt.Identity(ctx, viper.GetString("user-id"), viper.GetString("role"))
				if err != nil {
					return err
				}
				items, err := eng.ListZones(ctx, caller)
				if err != nil {
					return err
				}
				return printJSON(items)
			})
		},
	}

	root.AddCommand(add, list)
	return root
}

func rosterCmd() *cobra.Command {
	root := &cobra.Command{Use: "roster", Short: "Drivers, vehicles and roles"}

	var driverUserID string
	var driverVehicleID int64
	driverAdd := &cobra.Command{
		Use:   "add-driver",
		Short: "Grant the driver role and create a profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				caller, err := rt.Identity(ctx, viper.GetString("user-id"), viper.GetString("role"))
				if err != nil {
					return err
				}
				var vehicleID *int64
				if driverVehicleID > 0 {
					vehicleID = &driverVehicleID
				}
				p, err := eng.RegisterDriver(ctx, caller, driverUserID, vehicleID)
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	driverAdd.Flags().StringVar(&driverUserID, "user", "", "driver user id")
	driverAdd.Flags().Int64Var(&driverVehicleID, "vehicle", 0, "vehicle id")

	var plate string
	var capacity float64
	vehicleAdd := &cobra.Command{
		Use:   "add-vehicle",
		Short: "Add a vehicle to the fleet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				caller, err := rt.Identity(ctx, viper.GetString("user-id"), viper.GetString("role"))
				if err != nil {
					return err
				}
				v, err := eng.RegisterVehicle(ctx, caller, plate, capacity)
				if err != nil {
					return err
				}
				return printJSON(v)
			})
		},
	}
	vehicleAdd.Flags().StringVar(&plate, "plate", "", "plate number")
	vehicleAdd.Flags().Float64Var(&capacity, "capacity", 3500, "capacity in kg")

	var roleUserID, roleName string
	roleSet := &cobra.Command{
		Use:   "set-role",
		Short: "Assign a role to a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				caller, err := rt.Identity(ctx, viper.GetString("user-id"), viper.GetString("role"))
				if err != nil {
					return err
				}
				if err := eng.SetUserRole(ctx, caller, roleUserID, roleName); err != nil {
					return err
				}
				fmt.Printf("%s is now %s\n", roleUserID, roleName)
				return nil
			})
		},
	}
	roleSet.Flags().StringVar(&roleUserID, "user", "", "user id")
	roleSet.Flags().StringVar(&roleName, "role-name", "citizen", "citizen|driver|admin")

	root.AddCommand(driverAdd, vehicleAdd, roleSet)
	return root
}

func logCmd() *cobra.Command {
	var runID int64
	var limit int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Tail the driver event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, rt *app.Runtime, eng *engine.Engine) error {
				caller, err := rt.Identity(ctx, viper.GetString("user-id"), viper.GetString("role"))
				if err != nil {
					return err
				}
				var rid *int64
				if runID > 0 {
					rid = &runID
				}
				items, err := eng.ListDriverEvents(ctx, caller, rid, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Time", "Type", "Run", "Driver"})
				for _, ev := range items {
					run := ""
					if ev.RouteRunID != nil {
						run = fmt.Sprint(*ev.RouteRunID)
					}
					tw.AppendRow(table.Row{ev.ID, ev.CreatedAt, ev.EventType, run, ev.DriverUserID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&runID, "run", 0, "only events for this run")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
