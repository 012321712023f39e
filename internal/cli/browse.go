package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yebrai/skillswap/internal/client"
	"github.com/yebrai/skillswap/internal/domain/exchange"
)

func usersCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Find other members",
	}

	var category string
	search := &cobra.Command{
		Use:   "search [query]",
		Short: "Search members by name or skill",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.session(cmd.Context())
			if err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			res, err := client.Search(cmd.Context(), s, query, category, nil)
			if err != nil {
				return err
			}
			if res.Empty {
				e.printf("%s\n", res.Message)
				return nil
			}
			tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tOFFERS")
			for _, u := range res.Users {
				titles := make([]string, 0, len(u.OfferedSkills))
				for _, sk := range u.OfferedSkills {
					titles = append(titles, sk.Title)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", u.ID, u.Name, strings.Join(titles, ", "))
			}
			return tw.Flush()
		},
	}
	search.Flags().StringVar(&category, "category", "All", "restrict to one skill category")

	cmd.AddCommand(search)
	return cmd
}

func conversationsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"inbox"},
		Short:   "List your conversations, most recent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.session(cmd.Context())
			if err != nil {
				return err
			}
			list, err := client.NewConversations(s).List(cmd.Context())
			if err != nil {
				return err
			}
			if list.Empty {
				e.printf("%s\n", client.NoConversationsMessage)
				return nil
			}
			tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PEER\tNAME\tUNREAD\tLAST MESSAGE")
			for _, c := range list.Items {
				name := c.ID
				if c.User != nil {
					name = c.User.Name
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s  %s\n", c.ID, name, c.UnreadCount,
					c.LastMessage.CreatedAt.Local().Format(time.DateTime), preview(c.LastMessage.Content))
			}
			return tw.Flush()
		},
	}
}

func exchangeCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exchange",
		Short: "Propose and answer skill exchanges",
	}

	request := &cobra.Command{
		Use:   "request <userId> <skill>",
		Short: "Offer your first skill in return for one of theirs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.session(cmd.Context())
			if err != nil {
				return err
			}
			ex, err := client.NewNegotiator(s).RequestExchange(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			e.printf("Requested exchange %s: your %s for their %s (%s)\n",
				ex.ID, ex.Initiator.Skill, ex.Recipient.Skill, ex.Status)
			return nil
		},
	}

	respond := &cobra.Command{
		Use:       "respond <exchangeId> accept|reject",
		Short:     "Answer a pending exchange addressed to you",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"accept", "reject"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var d client.Decision
			switch strings.ToLower(args[1]) {
			case "accept":
				d = client.Accept
			case "reject":
				d = client.Reject
			default:
				return fmt.Errorf("decision must be accept or reject, got %q", args[1])
			}

			s, err := e.session(cmd.Context())
			if err != nil {
				return err
			}
			n := client.NewNegotiator(s)
			if _, err := n.Refresh(cmd.Context()); err != nil {
				return err
			}
			ex, err := n.RespondToExchange(cmd.Context(), args[0], d)
			switch {
			case errors.Is(err, client.ErrNotPending):
				return errors.New("that exchange has already been answered")
			case errors.Is(err, client.ErrNotRecipient):
				return errors.New("only the member you asked can answer this exchange")
			case errors.Is(err, client.ErrUnknownExchange):
				return fmt.Errorf("no exchange %s among your requests", args[0])
			case err != nil:
				return err
			}
			e.printf("Exchange %s is now %s\n", ex.ID, ex.Status)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List exchanges you proposed or received",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.session(cmd.Context())
			if err != nil {
				return err
			}
			exchanges, err := client.NewNegotiator(s).Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if len(exchanges) == 0 {
				e.printf("No exchanges yet\n")
				return nil
			}
			me := s.User().ID
			tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tWITH\tYOU TEACH\tYOU LEARN\tSTATUS")
			for _, ex := range exchanges {
				mine, theirs := ex.Initiator, ex.Recipient
				if ex.Recipient.UserID == me {
					mine, theirs = ex.Recipient, ex.Initiator
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", ex.ID, partyName(theirs), mine.Skill, theirs.Skill, ex.Status)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(request, respond, list)
	return cmd
}

func notificationsCmd(e *env) *cobra.Command {
	var (
		markAll bool
		markID  string
	)
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Show recent notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.session(cmd.Context())
			if err != nil {
				return err
			}
			n := client.NewNotifications(s)
			switch {
			case markAll:
				if err := n.MarkAllRead(cmd.Context()); err != nil {
					return err
				}
			case markID != "":
				if err := n.MarkRead(cmd.Context(), markID); err != nil {
					return err
				}
			}

			feed, err := n.Feed(cmd.Context())
			if err != nil {
				return err
			}
			e.printf("%d unread\n", feed.Unread)
			for _, item := range feed.Items {
				mark := " "
				if !item.Read {
					mark = "*"
				}
				e.printf("%s %s  %s  %s\n", mark, item.ID, item.CreatedAt.Local().Format(time.DateTime), item.Message)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&markAll, "read-all", false, "mark every notification read first")
	cmd.Flags().StringVar(&markID, "read", "", "mark one notification read first")
	cmd.MarkFlagsMutuallyExclusive("read-all", "read")
	return cmd
}

func partyName(p exchange.Party) string {
	if p.User != nil && p.User.Name != "" {
		return p.User.Name
	}
	return p.UserID
}

func preview(s string) string {
	const limit = 40
	if r := []rune(s); len(r) > limit {
		return string(r[:limit-1]) + "…"
	}
	return s
}
