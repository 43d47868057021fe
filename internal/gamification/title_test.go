package gamification

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		points    int
		published int64
		followers int64
		want      string
	}{
		{name: "legend by points alone", points: 500, published: 0, followers: 0, want: TitleLegend},
		{name: "legend by activity alone", points: 0, published: 10, followers: 20, want: TitleLegend},
		{name: "overclocker by points", points: 250, published: 0, followers: 0, want: TitleOverclocker},
		{name: "overclocker by activity", points: 0, published: 5, followers: 10, want: TitleOverclocker},
		{name: "build master by points", points: 100, published: 0, followers: 0, want: TitleBuildMaster},
		{name: "build master by activity", points: 0, published: 2, followers: 5, want: TitleBuildMaster},
		{name: "newcomer by points", points: 50, published: 0, followers: 0, want: TitleNewcomer},
		{name: "newcomer by first publish", points: 0, published: 1, followers: 0, want: TitleNewcomer},
		{name: "just below newcomer points stays observer without publish", points: 49, published: 0, followers: 4, want: TitleObserver},
		{name: "fresh account", points: 0, published: 0, followers: 0, want: TitleObserver},
		{name: "points below tier fall through to activity", points: 99, published: 1, followers: 4, want: TitleNewcomer},
		{name: "activity requires both thresholds", points: 0, published: 10, followers: 19, want: TitleOverclocker},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.points, tc.published, tc.followers); got != tc.want {
				t.Fatalf("Classify(%d, %d, %d) = %q, want %q", tc.points, tc.published, tc.followers, got, tc.want)
			}
		})
	}
}
