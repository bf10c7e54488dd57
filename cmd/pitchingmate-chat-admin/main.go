package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/cache"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/config"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/globals"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/persistence"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/types"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// A very simple CLI tool for the administration of chat rooms.

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
)

func parseRoomID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid room id %q", arg)
	}
	return uint(id), nil
}

func main() {
	log.SetFlags(0)

	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)

	pflag.Parse()

	globalConfig, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}

	globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))

	store, err := persistence.NewGormStore(globalConfig)
	if err != nil {
		panic(err)
	}
	defer store.Close()

	var cmdShow = &cobra.Command{
		Use:   "show",
		Short: "Show rooms, members or messages",
		Long:  `show is for printing room, membership or message information.`,
		Args:  cobra.MinimumNArgs(0),
	}
	var cmdShowRooms = &cobra.Command{
		Use:   "rooms",
		Short: "Show rooms",
		Long:  `show rooms lists all chat rooms, most recently updated first.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			rooms, err := store.Rooms(0, 1000)
			if err != nil {
				globals.AppLogger.Error("could not get rooms", "error", err)
				return
			}
			r, err := json.Marshal(rooms)
			if err != nil {
				globals.AppLogger.Error("could not marshal rooms", "error", err)
				return
			}
			fmt.Println(string(r))
		},
	}
	var cmdShowRoom = &cobra.Command{
		Use:   "room [room id]",
		Short: "Show room",
		Long:  `show room prints detail information about the room with the given id.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			roomID, err := parseRoomID(args[0])
			if err != nil {
				globals.AppLogger.Error("could not parse room id", "error", err)
				return
			}
			room, err := store.GetRoom(roomID)
			if err != nil {
				globals.AppLogger.Error("could not get room", "error", err)
				return
			}
			r, err := json.Marshal(room)
			if err != nil {
				globals.AppLogger.Error("could not marshal room", "error", err)
				return
			}
			fmt.Println(string(r))
		},
	}
	var cmdShowMembers = &cobra.Command{
		Use:   "members [room id]",
		Short: "Show room members",
		Long:  `show members lists the active memberships of the room with the given id.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			roomID, err := parseRoomID(args[0])
			if err != nil {
				globals.AppLogger.Error("could not parse room id", "error", err)
				return
			}
			memberships, err := store.ActiveMemberships(roomID)
			if err != nil {
				globals.AppLogger.Error("could not get memberships", "error", err)
				return
			}
			m, err := json.Marshal(memberships)
			if err != nil {
				globals.AppLogger.Error("could not marshal memberships", "error", err)
				return
			}
			fmt.Println(string(m))
		},
	}
	var cmdShowMessages = &cobra.Command{
		Use:   "messages [room id]",
		Short: "Show room messages",
		Long:  `show messages prints the latest messages of the room with the given id.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			roomID, err := parseRoomID(args[0])
			if err != nil {
				globals.AppLogger.Error("could not parse room id", "error", err)
				return
			}
			messages, err := store.MessageHistory(roomID, time.Time{}, time.Time{}, globalConfig.ChatConfig.HistoryPageSize)
			if err != nil {
				globals.AppLogger.Error("could not get messages", "error", err)
				return
			}
			m, err := json.Marshal(messages)
			if err != nil {
				globals.AppLogger.Error("could not marshal messages", "error", err)
				return
			}
			fmt.Println(string(m))
		},
	}
	var cmdClose = &cobra.Command{
		Use:   "close",
		Short: "Close a room",
		Long:  `close is for shutting down rooms out of band.`,
		Args:  cobra.MinimumNArgs(0),
	}
	var cmdCloseRoom = &cobra.Command{
		Use:   "room [room id]",
		Short: "Close room",
		Long:  `close room deactivates all memberships of the room with the given id and marks it closed.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			roomID, err := parseRoomID(args[0])
			if err != nil {
				globals.AppLogger.Error("could not parse room id", "error", err)
				return
			}
			room, err := store.GetRoom(roomID)
			if err != nil {
				globals.AppLogger.Error("could not get room", "error", err)
				return
			}
			memberships, err := store.ActiveMemberships(roomID)
			if err != nil {
				globals.AppLogger.Error("could not get memberships", "error", err)
				return
			}
			for _, m := range memberships {
				m.IsActive = false
				if err := store.SaveMembership(m); err != nil {
					globals.AppLogger.Error("could not save membership", "member", m.MemberID, "error", err)
					return
				}
			}
			room.State = types.RoomClosed
			room.CurrentMemberCount = 0
			if err := store.SaveRoom(room); err != nil {
				globals.AppLogger.Error("could not save room", "error", err)
				return
			}
			globals.AppLogger.Info("room closed", "room", roomID, "members", len(memberships))
		},
	}
	var cmdEvict = &cobra.Command{
		Use:   "evict",
		Short: "Evict cached data",
		Long:  `evict drops cached data, the durable store is untouched.`,
		Args:  cobra.MinimumNArgs(0),
	}
	var cmdEvictCache = &cobra.Command{
		Use:   "cache [room id]",
		Short: "Evict a room's message cache",
		Long:  `evict cache drops the cached message window of the room with the given id.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			roomID, err := parseRoomID(args[0])
			if err != nil {
				globals.AppLogger.Error("could not parse room id", "error", err)
				return
			}
			if globalConfig.CacheConfig.Addr == "" {
				globals.AppLogger.Error("no cache configured")
				return
			}
			msgCache, err := cache.NewRedisMessageCache(globalConfig)
			if err != nil {
				globals.AppLogger.Error("could not connect to cache", "error", err)
				return
			}
			defer msgCache.Close()
			if err := msgCache.EvictAll(context.Background(), roomID); err != nil {
				globals.AppLogger.Error("could not evict cache", "error", err)
				return
			}
			globals.AppLogger.Info("cache evicted", "room", roomID)
		},
	}

	var rootCmd = &cobra.Command{Use: "pitchingmate-chat-admin"}
	rootCmd.AddCommand(cmdShow)
	rootCmd.AddCommand(cmdClose)
	rootCmd.AddCommand(cmdEvict)
	cmdShow.AddCommand(cmdShowRooms, cmdShowRoom, cmdShowMembers, cmdShowMessages)
	cmdClose.AddCommand(cmdCloseRoom)
	cmdEvict.AddCommand(cmdEvictCache)
	rootCmd.Execute()
}
